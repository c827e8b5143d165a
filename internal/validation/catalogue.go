// SPDX-License-Identifier: MIT

package validation

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Say keys identify canonical replies. The engine renders replies through
// the catalogue under these keys; the validator verifies the rendered text
// against the same entry.
const (
	SayAskName         = "booking.ask_name"
	SayAskNameRetry    = "booking.ask_name_retry"
	SayAskMotif        = "booking.ask_motif"
	SayAskMotifRetry   = "booking.ask_motif_retry"
	SayAskPref         = "booking.ask_pref"
	SayAskPrefRetry    = "booking.ask_pref_retry"
	SayConfirmPref     = "booking.confirm_pref"
	SayProposeSlots    = "booking.propose_slots"
	SayProposeNext     = "booking.propose_next"
	SayConfirmSlot     = "booking.confirm_slot"
	SayReaskChoice     = "booking.reask_choice"
	SayReaskChoiceHard = "booking.reask_choice_hard"
	SayAskContact      = "booking.ask_contact"
	SayAskContactRetry = "booking.ask_contact_retry"
	SayConfirmContact  = "booking.confirm_contact"
	SayConfirmed       = "booking.confirmed"

	SayClarifyStart  = "clarify.start"
	SayClarifyRepeat = "clarify.repeat"
	SayAskQuestion   = "clarify.ask_question"
	SayGoodbye       = "closing.goodbye"

	SayRouterMenu      = "router.menu"
	SayRouterMenuRetry = "router.menu_retry"

	SayFAQAnswer   = "faq.answer"
	SayFAQMissOne  = "faq.miss_one"
	SayFAQMenu     = "faq.menu"
	SayPostFAQNext = "faq.post_choice"

	SayCancelAskName  = "cancel.ask_name"
	SayCancelConfirm  = "cancel.confirm"
	SayCancelDone     = "cancel.done"
	SayCancelNotFound = "cancel.not_found"

	SayModifyAskName = "modify.ask_name"
	SayModifyAskPref = "modify.ask_pref"
	SayModifyConfirm = "modify.confirm"

	SayOrdoAskName   = "ordonnance.ask_name"
	SayOrdoAskDetail = "ordonnance.ask_detail"
	SayOrdoConfirm   = "ordonnance.confirm"
	SayOrdoDone      = "ordonnance.done"

	SaySilenceOne = "guard.silence_one"
	SaySilenceTwo = "guard.silence_two"
	SayNoiseOne   = "guard.noise_one"
	SayNoiseTwo   = "guard.noise_two"
	SayTooLong    = "guard.too_long"
	SayWrongLang  = "guard.wrong_language"

	SayBudgetSaveBooking = "budget.save_booking"
	SayBudgetSaveGeneric = "budget.save_generic"

	SayTransfer        = "transfer.handoff"
	SayTransferNoSlots = "transfer.no_slots"
	SayFallback        = "transfer.fallback"

	SayOverlayReply = "overlay.reply"
	SayAssistReply  = "assist.out_of_scope"
	SayBusyAck      = "turn.busy_ack"
)

// TemplateEntry is one canonical reply. Text uses fmt verbs for the
// variable parts; class decides how strictly the validator checks it.
type TemplateEntry struct {
	Key   string `yaml:"key"`
	Class Class  `yaml:"class"`
	Text  string `yaml:"text"`
}

// Catalogue is an immutable snapshot of the reply templates. Hot reload
// swaps whole snapshots, never mutates one in place.
type Catalogue struct {
	entries  map[string]TemplateEntry
	patterns map[string]*regexp.Regexp
	critical map[string]struct{} // exact critical texts
}

// NewCatalogue compiles the entries into a snapshot.
func NewCatalogue(entries []TemplateEntry) (*Catalogue, error) {
	c := &Catalogue{
		entries:  make(map[string]TemplateEntry, len(entries)),
		patterns: make(map[string]*regexp.Regexp, len(entries)),
		critical: make(map[string]struct{}),
	}
	for _, e := range entries {
		if e.Key == "" || e.Text == "" {
			return nil, fmt.Errorf("validation: template entry needs key and text (key=%q)", e.Key)
		}
		if _, dup := c.entries[e.Key]; dup {
			return nil, fmt.Errorf("validation: duplicate template key %q", e.Key)
		}
		switch e.Class {
		case ClassCritical, ClassTemplate, ClassAIGenerated:
		default:
			return nil, fmt.Errorf("validation: template %q has unknown class %q", e.Key, e.Class)
		}
		c.entries[e.Key] = e

		if e.Class == ClassCritical {
			if strings.Contains(e.Text, "%") {
				return nil, fmt.Errorf("validation: critical template %q must not carry placeholders", e.Key)
			}
			c.critical[e.Text] = struct{}{}
			continue
		}
		re, err := compileTemplatePattern(e.Text)
		if err != nil {
			return nil, fmt.Errorf("validation: template %q: %w", e.Key, err)
		}
		c.patterns[e.Key] = re
	}
	// The firewall substitutes these on rejection; a catalogue without
	// them could emit nothing at all.
	for _, required := range []string{SayTransfer, SayFallback} {
		if e, ok := c.entries[required]; !ok || e.Class != ClassCritical {
			return nil, fmt.Errorf("validation: catalogue must define critical template %q", required)
		}
	}
	return c, nil
}

// compileTemplatePattern turns a fmt-style template into an anchored
// regexp: %s matches any non-empty run, %d digits only.
func compileTemplatePattern(text string) (*regexp.Regexp, error) {
	quoted := regexp.QuoteMeta(text)
	quoted = strings.ReplaceAll(quoted, "%s", `(?s).+?`)
	quoted = strings.ReplaceAll(quoted, "%d", `\d+`)
	return regexp.Compile("^" + quoted + "$")
}

// LoadCatalogueFile reads a template catalogue from YAML. Entries replace
// the built-in ones wholesale, so a file must carry the full set.
func LoadCatalogueFile(path string) (*Catalogue, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("validation: read catalogue: %w", err)
	}
	var doc struct {
		Templates []TemplateEntry `yaml:"templates"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("validation: parse catalogue: %w", err)
	}
	if len(doc.Templates) == 0 {
		return nil, fmt.Errorf("validation: catalogue %s has no templates", path)
	}
	return NewCatalogue(doc.Templates)
}

// Render fills the template under key. ok=false when the key is unknown.
func (c *Catalogue) Render(key string, args ...interface{}) (string, bool) {
	e, ok := c.entries[key]
	if !ok {
		return "", false
	}
	if len(args) == 0 {
		return e.Text, true
	}
	return fmt.Sprintf(e.Text, args...), true
}

// Entry returns the raw template entry.
func (c *Catalogue) Entry(key string) (TemplateEntry, bool) {
	e, ok := c.entries[key]
	return e, ok
}

// DefaultCatalogue returns the built-in French reply set.
func DefaultCatalogue() *Catalogue {
	c, err := NewCatalogue(defaultTemplates)
	if err != nil {
		// Validated by tests; failing here is a programming error.
		panic(err)
	}
	return c
}

var defaultTemplates = []TemplateEntry{
	// Booking qualification.
	{Key: SayAskName, Class: ClassTemplate, Text: "Avec plaisir. Pouvez-vous me donner votre nom, s'il vous plaît ?"},
	{Key: SayAskNameRetry, Class: ClassTemplate, Text: "Pardon, je n'ai pas bien saisi votre nom. Pouvez-vous le répéter lentement ?"},
	{Key: SayAskMotif, Class: ClassTemplate, Text: "Très bien, %s. Quel est le motif de votre rendez-vous ?"},
	{Key: SayAskMotifRetry, Class: ClassTemplate, Text: "Excusez-moi, quel est le motif de votre visite ? Par exemple une consultation, un contrôle ou une douleur."},
	{Key: SayAskPref, Class: ClassTemplate, Text: "C'est noté. Avez-vous une préférence, plutôt le matin ou l'après-midi ?"},
	{Key: SayAskPrefRetry, Class: ClassTemplate, Text: "Préférez-vous un rendez-vous le matin, l'après-midi ou en fin de journée ?"},
	{Key: SayConfirmPref, Class: ClassTemplate, Text: "Vous préférez %s, c'est bien ça ?"},
	{Key: SayProposeSlots, Class: ClassTemplate, Text: "Je peux vous proposer : %s. Lequel vous convient ? Dites 1, 2 ou 3."},
	{Key: SayProposeNext, Class: ClassTemplate, Text: "Je vous propose %s. Est-ce que cela vous convient ?"},
	{Key: SayConfirmSlot, Class: ClassTemplate, Text: "Je confirme le créneau %s, c'est bien ça ?"},
	{Key: SayReaskChoice, Class: ClassTemplate, Text: "Pour être sûr de bien noter, dites simplement 1, 2 ou 3."},
	{Key: SayReaskChoiceHard, Class: ClassTemplate, Text: "Je n'ai besoin que d'un chiffre : 1, 2 ou 3. Lequel choisissez-vous ?"},
	{Key: SayAskContact, Class: ClassTemplate, Text: "Parfait. Quel est votre numéro de téléphone pour la confirmation ?"},
	{Key: SayAskContactRetry, Class: ClassTemplate, Text: "Je n'ai pas bien noté votre numéro. Pouvez-vous le dicter chiffre par chiffre ?"},
	{Key: SayConfirmContact, Class: ClassTemplate, Text: "Je note %s, c'est bien ça ?"},
	{Key: SayConfirmed, Class: ClassCritical, Text: "Votre rendez-vous est confirmé. Vous recevrez un rappel avant la date. Merci et à bientôt."},

	// Clarification and router.
	{Key: SayClarifyStart, Class: ClassTemplate, Text: "Souhaitez-vous prendre un rendez-vous, ou avez-vous une question ?"},
	{Key: SayClarifyRepeat, Class: ClassTemplate, Text: "Dites simplement « rendez-vous » pour réserver, ou posez directement votre question."},
	{Key: SayAskQuestion, Class: ClassTemplate, Text: "Je vous écoute, quelle est votre question ?"},
	{Key: SayGoodbye, Class: ClassTemplate, Text: "Très bien, merci de votre appel et bonne journée."},
	{Key: SayRouterMenu, Class: ClassTemplate, Text: "Je peux vous aider de plusieurs façons. Dites 1 pour prendre un rendez-vous, 2 pour nos horaires et informations pratiques, ou 3 pour parler à quelqu'un."},
	{Key: SayRouterMenuRetry, Class: ClassTemplate, Text: "Dites simplement 1 pour un rendez-vous, 2 pour les informations pratiques, ou 3 pour parler à quelqu'un."},

	// FAQ path.
	{Key: SayFAQAnswer, Class: ClassTemplate, Text: "%s"},
	{Key: SayFAQMissOne, Class: ClassTemplate, Text: "Je ne suis pas sûr d'avoir la réponse. Pouvez-vous reformuler votre question ?"},
	{Key: SayFAQMenu, Class: ClassTemplate, Text: "Je peux vous renseigner sur %s. Je peux aussi prendre un rendez-vous ou vous passer quelqu'un. Que préférez-vous ?"},
	{Key: SayPostFAQNext, Class: ClassTemplate, Text: "Puis-je vous aider pour autre chose ? Un rendez-vous, peut-être ?"},

	// Cancellation.
	{Key: SayCancelAskName, Class: ClassTemplate, Text: "Bien sûr. À quel nom le rendez-vous a-t-il été pris ?"},
	{Key: SayCancelConfirm, Class: ClassTemplate, Text: "Je vais annuler le rendez-vous au nom de %s, c'est bien ça ?"},
	{Key: SayCancelDone, Class: ClassCritical, Text: "C'est fait, votre rendez-vous est annulé. N'hésitez pas à nous rappeler pour en reprendre un."},
	{Key: SayCancelNotFound, Class: ClassCritical, Text: "Je ne trouve pas de rendez-vous à ce nom. Je vous passe quelqu'un qui pourra vérifier. Merci de patienter."},

	// Modification.
	{Key: SayModifyAskName, Class: ClassTemplate, Text: "D'accord. À quel nom le rendez-vous a-t-il été pris ?"},
	{Key: SayModifyAskPref, Class: ClassTemplate, Text: "Très bien. Pour le nouveau créneau, préférez-vous le matin ou l'après-midi ?"},
	{Key: SayModifyConfirm, Class: ClassTemplate, Text: "Je remplace votre rendez-vous par le créneau %s, c'est bien ça ?"},

	// Prescription renewal.
	{Key: SayOrdoAskName, Class: ClassTemplate, Text: "Pour votre renouvellement d'ordonnance, pouvez-vous me donner votre nom ?"},
	{Key: SayOrdoAskDetail, Class: ClassTemplate, Text: "Merci, %s. De quel traitement s'agit-il ?"},
	{Key: SayOrdoConfirm, Class: ClassTemplate, Text: "Je transmets votre demande de renouvellement pour %s au praticien, c'est bien ça ?"},
	{Key: SayOrdoDone, Class: ClassCritical, Text: "C'est noté, votre demande de renouvellement est transmise. L'ordonnance sera disponible à l'accueil sous quarante-huit heures."},

	// Input-quality prompts, first and second strike.
	{Key: SaySilenceOne, Class: ClassTemplate, Text: "Je ne vous ai pas entendu. Pouvez-vous répéter ?"},
	{Key: SaySilenceTwo, Class: ClassTemplate, Text: "Je vous entends mal. Parlez après le bip, ou restez en ligne pour être mis en relation."},
	{Key: SayNoiseOne, Class: ClassTemplate, Text: "Pardon, je n'ai pas compris. Pouvez-vous reformuler ?"},
	{Key: SayNoiseTwo, Class: ClassTemplate, Text: "La ligne est difficile à comprendre. Essayez de parler un peu plus lentement, s'il vous plaît."},
	{Key: SayTooLong, Class: ClassTemplate, Text: "C'était un peu long pour moi. Pouvez-vous résumer en une phrase ?"},
	{Key: SayWrongLang, Class: ClassTemplate, Text: "Désolé, je ne parle que français. Pouvez-vous reformuler en français ?"},

	// Transfer-prevention saves.
	{Key: SayBudgetSaveBooking, Class: ClassTemplate, Text: "Je peux peut-être vous aider directement. Souhaitez-vous que je regarde les créneaux disponibles ?"},
	{Key: SayBudgetSaveGeneric, Class: ClassTemplate, Text: "Avant de vous transférer, je peux déjà prendre un rendez-vous ou répondre à vos questions. Que préférez-vous ?"},

	// Terminal handoffs. Zero tolerance: exact texts only.
	{Key: SayTransfer, Class: ClassCritical, Text: "Très bien, je vous mets en relation avec un membre de l'équipe. Merci de patienter un instant."},
	{Key: SayTransferNoSlots, Class: ClassCritical, Text: "Je n'ai pas de créneau correspondant à votre demande. Je vous passe un membre de l'équipe pour trouver une solution. Merci de patienter."},
	{Key: SayFallback, Class: ClassCritical, Text: "Un instant s'il vous plaît, je vous mets en relation avec un membre de l'équipe."},

	// Free-form surfaces, checked by content rules rather than shape.
	{Key: SayOverlayReply, Class: ClassAIGenerated, Text: "%s"},
	{Key: SayAssistReply, Class: ClassAIGenerated, Text: "%s"},

	// Duplicate-delivery acknowledgement.
	{Key: SayBusyAck, Class: ClassTemplate, Text: "Un instant, je suis à vous tout de suite."},
}
