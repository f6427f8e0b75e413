// Package messages holds the user-facing texts of the booking engine, keyed
// by message code and locale. Placeholders are written as {name}.
package messages

import (
	"sort"
	"strings"

	"github.com/cuongbtq/interpreter-booking/internal/domain"
)

// Supported locales
const (
	LocaleSwedish = "sv"
	LocaleEnglish = "en"
)

// Keys used for notification texts that are not error or result codes
const (
	SubjectJobCreated        = "subject.job_created"
	SubjectJobAccepted       = "subject.job_accepted"
	SubjectJobChanged        = "subject.job_changed"
	SubjectTranslatorChanged = "subject.translator_changed"
	SubjectBookingCancelled  = "subject.booking_cancelled"
	SubjectSessionEnded      = "subject.session_ended"
	SubjectBookingReopened   = "subject.booking_reopened"
	PushJobAccepted          = "push.job_accepted"
	PushCustomerCancelled    = "push.customer_cancelled"
	PushTranslatorCancelled  = "push.translator_cancelled"
	PushSessionReminder      = "push.session_reminder"
	PushNewJob               = "push.new_job"
	ForTextInvoice           = "for_text.invoice"
	ForTextPayout            = "for_text.payout"
)

var catalog = map[string]map[string]string{
	LocaleSwedish: {
		domain.CodeFieldsRequired:         "Du måste fylla in alla fält",
		domain.CodeNotCustomer:            "Tolkar kan inte skapa bokningar",
		domain.CodePastDueDate:            "Det går inte att boka en tid som redan har passerat",
		domain.CodeInvalidDueDate:         "Ogiltigt datum eller tid",
		domain.CodeTranslatorBooked:       "Du har redan en bokning den tiden {due}. Du har inte fått denna tolkning",
		domain.CodeAlreadyAccepted:        "Denna {language}tolkning {duration}min {due} har redan accepterats av annan tolk. Du har inte fått denna tolkning",
		domain.CodeAccepted:               "Du har nu accepterat och fått bokningen för {language}tolk {duration}min {due}",
		domain.CodeCancelByPhone:          "Du kan inte avboka en bokning som sker inom 24 timmar via appen. Vänligen ring på {phone} och gör din avbokning över telefon. Tack!",
		domain.CodeCommentRequired:        "Du måste lägga till en kommentar",
		domain.CodeSessionTimeRequired:    "Du måste ange sessionstid",
		domain.CodeTransitionNotAllowed:   "Statusändringen är inte tillåten",
		domain.CodeNotAssignedTranslator:  "Du är inte tilldelad denna bokning",
		domain.CodeNotCancellable:         "Bokningen kan inte avbokas",
		domain.CodeReopened:               "Tolk cancelled!",
		domain.CodeReopenFailed:           "Please try again!",
		domain.CodeFlagCommentRequired:    "Please, add comment",
		domain.CodeAdminFieldsUpdated:     "Record updated!",
		domain.CodeNoActiveTranslator:     "Bokningen har ingen tilldelad tolk",
		domain.CodeNotificationsResent:    "Push sent",
		domain.CodeSMSNotificationsResent: "SMS sent",
		domain.CodeForbidden:              "Du har inte behörighet",
		domain.CodeJobChanged:             "Bokningen har ändrats av någon annan, försök igen",

		SubjectJobCreated:        "Vi har mottagit er tolkbokning. Bokningsnr: #{job_id}",
		SubjectJobAccepted:       "Bekräftelse - tolk har accepterat er bokning (bokning # {job_id})",
		SubjectJobChanged:        "Meddelande om ändring av tolkbokning för uppdrag # {job_id}",
		SubjectTranslatorChanged: "Meddelande om tilldelning av tolkuppdrag för uppdrag # {job_id}",
		SubjectBookingCancelled:  "Avbokning av bokningsnr: #{job_id}",
		SubjectSessionEnded:      "Information om avslutad tolkning för bokningsnummer # {job_id}",
		SubjectBookingReopened:   "Vi har nu återöppnat er bokning av {language}tolk för bokning #{job_id}",
		PushJobAccepted:          "Du har nu accepterat och fått bokningen för {language}tolk {duration}min {due}",
		PushCustomerCancelled:    "Kunden har avbokat bokningen för {language}tolk, {duration}min, {due}. Var god och kolla dina tidigare bokningar för detaljer.",
		PushTranslatorCancelled:  "Er {language}tolk, {duration}min {due}, har avbokat tolkningen. Vi letar nu efter en ny tolk som kan ersätta denne. Tack.",
		PushSessionReminder:      "Påminnelse: {language}tolkning {duration}min börjar {due}.",
		PushNewJob:               "Ny bokning: {language}tolk {duration}min {due}",
		ForTextInvoice:           "faktura",
		ForTextPayout:            "lön",
	},
	LocaleEnglish: {
		domain.CodeFieldsRequired:         "You must fill in all fields",
		domain.CodeNotCustomer:            "Translator cannot create booking",
		domain.CodePastDueDate:            "Can't create booking in the past",
		domain.CodeInvalidDueDate:         "Invalid due date or time",
		domain.CodeTranslatorBooked:       "You already have a booking at {due}. You did not get this booking",
		domain.CodeAlreadyAccepted:        "This {language} booking {duration}min {due} was already accepted by another translator. You did not get this booking",
		domain.CodeAccepted:               "You have accepted the {language} booking {duration}min {due}",
		domain.CodeCancelByPhone:          "Bookings within 24 hours cannot be cancelled in the app. Please call {phone} to cancel by phone. Thank you!",
		domain.CodeCommentRequired:        "An admin comment is required",
		domain.CodeSessionTimeRequired:    "Session time is required",
		domain.CodeTransitionNotAllowed:   "Status change not allowed",
		domain.CodeNotAssignedTranslator:  "You are not assigned to this booking",
		domain.CodeNotCancellable:         "This booking cannot be cancelled",
		domain.CodeReopened:               "Tolk cancelled!",
		domain.CodeReopenFailed:           "Please try again!",
		domain.CodeFlagCommentRequired:    "Please, add comment",
		domain.CodeAdminFieldsUpdated:     "Record updated!",
		domain.CodeNoActiveTranslator:     "The booking has no assigned translator",
		domain.CodeNotificationsResent:    "Push sent",
		domain.CodeSMSNotificationsResent: "SMS sent",
		domain.CodeForbidden:              "Forbidden",
		domain.CodeJobChanged:             "The booking was changed by someone else, please try again",

		SubjectJobCreated:        "We have received your booking. Booking no: #{job_id}",
		SubjectJobAccepted:       "Confirmation - a translator accepted your booking (booking # {job_id})",
		SubjectJobChanged:        "Your booking # {job_id} has changed",
		SubjectTranslatorChanged: "Translator assignment for booking # {job_id}",
		SubjectBookingCancelled:  "Cancellation of booking no: #{job_id}",
		SubjectSessionEnded:      "Session ended for booking # {job_id}",
		SubjectBookingReopened:   "Your {language} booking #{job_id} has been reopened",
		PushJobAccepted:          "You have accepted the {language} booking {duration}min {due}",
		PushCustomerCancelled:    "The customer cancelled the {language} booking, {duration}min, {due}. See your past bookings for details.",
		PushTranslatorCancelled:  "Your {language} translator, {duration}min {due}, cancelled. We are looking for a replacement. Thank you.",
		PushSessionReminder:      "Reminder: {language} session {duration}min starts {due}.",
		PushNewJob:               "New booking: {language} {duration}min {due}",
		ForTextInvoice:           "invoice",
		ForTextPayout:            "payout",
	},
}

// Catalog resolves message codes for a default locale
type Catalog struct {
	locale string
}

// New creates a catalog; unknown locales fall back to Swedish
func New(locale string) *Catalog {
	if _, ok := catalog[locale]; !ok {
		locale = LocaleSwedish
	}
	return &Catalog{locale: locale}
}

// Locale returns the default locale
func (c *Catalog) Locale() string {
	return c.locale
}

// Text renders code in the default locale
func (c *Catalog) Text(code string, args map[string]string) string {
	return c.TextIn(c.locale, code, args)
}

// TextIn renders code in locale, falling back to the default locale and then
// to the code itself
func (c *Catalog) TextIn(locale, code string, args map[string]string) string {
	text, ok := catalog[locale][code]
	if !ok {
		text, ok = catalog[c.locale][code]
	}
	if !ok {
		return code
	}
	return render(text, args)
}

func render(text string, args map[string]string) string {
	if len(args) == 0 {
		return text
	}

	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(args)*2)
	for _, k := range keys {
		pairs = append(pairs, "{"+k+"}", args[k])
	}
	return strings.NewReplacer(pairs...).Replace(text)
}
