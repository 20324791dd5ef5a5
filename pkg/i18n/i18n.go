package i18n

import (
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

// Support localizes the user-facing strings the mobile clients display in
// alert dialogs. The production audience is Italian; English is the fallback.
type Support struct {
	bundle      *i18n.Bundle
	defaultLang string
}

func New(defaultLang string) *Support {
	if defaultLang == "" {
		defaultLang = "en"
	}
	bundle := i18n.NewBundle(language.English)
	addMessages(bundle)
	return &Support{bundle: bundle, defaultLang: defaultLang}
}

func addMessages(bundle *i18n.Bundle) {
	en := []*i18n.Message{
		{ID: "sos.already_active", Other: "SOS already active"},
		{ID: "sos.demo_mode", Other: "Demo mode: user not authenticated. In production the SOS would be sent to your emergency contacts."},
		{ID: "sos.create_failed", Other: "Unable to create SOS alert"},
		{ID: "sos.not_found", Other: "No active SOS found"},
		{ID: "audio.recording_in_progress", Other: "Recording already in progress"},
		{ID: "audio.start_failed", Other: "Unable to start recording"},
		{ID: "audio.save_failed", Other: "Error while saving the recording"},
		{ID: "contact.name_required", Other: "Contact name is required"},
		{ID: "sos.message_prefix", Other: "SOS! Emergency audio from {{.Name}}"},
	}
	it := []*i18n.Message{
		{ID: "sos.already_active", Other: "SOS già attivo"},
		{ID: "sos.demo_mode", Other: "Demo mode: utente non autenticato. In produzione, SOS verrebbe inviato ai contatti di emergenza."},
		{ID: "sos.create_failed", Other: "Impossibile creare allerta SOS"},
		{ID: "sos.not_found", Other: "Nessun SOS attivo trovato"},
		{ID: "audio.recording_in_progress", Other: "Registrazione già in corso"},
		{ID: "audio.start_failed", Other: "Impossibile avviare registrazione"},
		{ID: "audio.save_failed", Other: "Errore durante il salvataggio"},
		{ID: "contact.name_required", Other: "Il nome del contatto è obbligatorio"},
		{ID: "sos.message_prefix", Other: "SOS! Audio di emergenza da {{.Name}}"},
	}
	if err := bundle.AddMessages(language.English, en...); err != nil {
		panic(err)
	}
	if err := bundle.AddMessages(language.Italian, it...); err != nil {
		panic(err)
	}
}

// T translates a message id for the given language tag, falling back to the
// configured default language, then to the id itself.
func (s *Support) T(lang, id string, data map[string]any) string {
	if lang == "" {
		lang = s.defaultLang
	}
	localizer := i18n.NewLocalizer(s.bundle, lang, s.defaultLang)
	msg, err := localizer.Localize(&i18n.LocalizeConfig{MessageID: id, TemplateData: data})
	if err != nil {
		return id
	}
	return msg
}
