// SPDX-License-Identifier: MIT

// Package faq answers practice questions (opening hours, address, fees)
// from a curated catalogue. Matching is lexical only: the caller decides
// what to do when nothing matches.
package faq

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/voxdesk/voxdesk/internal/normalize"
)

// Entry is one answerable topic. Keywords are matched after diacritic
// folding, so "horaires" also covers "HORAIRES" and "horaire" must be
// listed explicitly.
type Entry struct {
	Key      string   `yaml:"key"`
	Label    string   `yaml:"label"`
	Keywords []string `yaml:"keywords"`
	Answer   string   `yaml:"answer"`
}

// Match is a scored lookup result.
type Match struct {
	Entry Entry
	Score int
}

// Index holds the catalogue with a folded keyword lookup table.
type Index struct {
	entries  []Entry
	keywords map[string]int // folded keyword -> entry index
}

// minScore is the overlap needed before an answer is returned; a single
// keyword hit is enough because the keywords are chosen to be unambiguous.
const minScore = 1

// NewIndex builds an index over the given entries.
func NewIndex(entries []Entry) (*Index, error) {
	idx := &Index{
		entries:  entries,
		keywords: make(map[string]int),
	}
	for i, e := range entries {
		if e.Key == "" {
			return nil, fmt.Errorf("faq: entry %d has no key", i)
		}
		if e.Answer == "" {
			return nil, fmt.Errorf("faq: entry %q has no answer", e.Key)
		}
		for _, kw := range e.Keywords {
			folded := normalize.Fold(normalize.Token(kw))
			if prev, dup := idx.keywords[folded]; dup && prev != i {
				return nil, fmt.Errorf("faq: keyword %q claimed by both %q and %q",
					kw, entries[prev].Key, e.Key)
			}
			idx.keywords[folded] = i
		}
	}
	return idx, nil
}

// LoadFile reads the catalogue from a YAML file.
func LoadFile(path string) (*Index, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("faq: read catalogue: %w", err)
	}
	var doc struct {
		Entries []Entry `yaml:"entries"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("faq: parse catalogue: %w", err)
	}
	if len(doc.Entries) == 0 {
		return nil, fmt.Errorf("faq: catalogue %s has no entries", path)
	}
	return NewIndex(doc.Entries)
}

// Lookup scores the utterance against the catalogue and returns the best
// entry, or ok=false when no entry reaches the threshold.
func (idx *Index) Lookup(text string) (Match, bool) {
	scores := make(map[int]int)
	for _, w := range normalize.Words(normalize.Fold(normalize.Token(text))) {
		if i, ok := idx.keywords[w]; ok {
			scores[i]++
		}
	}

	best, bestScore := -1, 0
	for i, score := range scores {
		if score > bestScore || (score == bestScore && best >= 0 && i < best) {
			best, bestScore = i, score
		}
	}
	if best < 0 || bestScore < minScore {
		return Match{}, false
	}
	return Match{Entry: idx.entries[best], Score: bestScore}, true
}

// ByKey returns the entry registered under key.
func (idx *Index) ByKey(key string) (Entry, bool) {
	for _, e := range idx.entries {
		if e.Key == key {
			return e, true
		}
	}
	return Entry{}, false
}

// MenuLabels lists the topic labels in catalogue order, for the spoken
// menu offered after repeated misses.
func (idx *Index) MenuLabels() []string {
	out := make([]string, 0, len(idx.entries))
	for _, e := range idx.entries {
		out = append(out, e.Label)
	}
	return out
}

// EntryAt returns the 1-based menu entry, mirroring MenuLabels order.
func (idx *Index) EntryAt(choice int) (Entry, bool) {
	if choice < 1 || choice > len(idx.entries) {
		return Entry{}, false
	}
	return idx.entries[choice-1], true
}

// Keys lists entry keys in catalogue order.
func (idx *Index) Keys() []string {
	out := make([]string, 0, len(idx.entries))
	for _, e := range idx.entries {
		out = append(out, e.Key)
	}
	sort.Strings(out)
	return out
}

// Default returns the built-in catalogue used when no YAML file is
// configured. Keys line up with the assist classifier's topic buckets.
func Default() *Index {
	idx, err := NewIndex(defaultEntries)
	if err != nil {
		// The built-in catalogue is validated by tests; a failure here is
		// a programming error.
		panic(err)
	}
	return idx
}

var defaultEntries = []Entry{
	{
		Key:      "horaires",
		Label:    "les horaires",
		Keywords: []string{"horaires", "horaire", "ouvert", "ouverture", "ferme", "fermeture", "ouvre", "fermez"},
		Answer:   "Le cabinet est ouvert du lundi au vendredi, de neuf heures à dix-huit heures, et le samedi matin de neuf heures à midi.",
	},
	{
		Key:      "adresse",
		Label:    "l'adresse",
		Keywords: []string{"adresse", "situe", "situes", "trouve", "trouvez", "ou"},
		Answer:   "Le cabinet se trouve au 12 rue des Lilas, au deuxième étage, à côté de la pharmacie.",
	},
	{
		Key:      "tarifs",
		Label:    "les tarifs",
		Keywords: []string{"tarifs", "tarif", "prix", "coute", "cout", "remboursement", "rembourse", "mutuelle", "carte", "vitale", "secu", "securite"},
		Answer:   "Les consultations sont au tarif conventionné secteur un. La carte Vitale et la mutuelle sont acceptées.",
	},
	{
		Key:      "acces",
		Label:    "l'accès et le parking",
		Keywords: []string{"parking", "garer", "stationnement", "metro", "bus", "tram", "acces", "accessible", "fauteuil", "ascenseur"},
		Answer:   "Un parking public se trouve à cinquante mètres du cabinet. L'accès est possible en fauteuil roulant, un ascenseur dessert l'étage.",
	},
	{
		Key:      "urgences",
		Label:    "les urgences",
		Keywords: []string{"garde", "nuit", "weekend", "dimanche", "ferie"},
		Answer:   "En dehors des horaires d'ouverture, composez le quinze pour toute urgence médicale, ou le trente-neuf soixante-six pour la garde dentaire.",
	},
	{
		Key:      "contact",
		Label:    "les moyens de contact",
		Keywords: []string{"mail", "email", "courriel", "site", "internet", "joindre", "contacter"},
		Answer:   "Vous pouvez nous écrire à contact arobase cabinet-lilas point fr, ou passer par le formulaire du site internet.",
	},
}
