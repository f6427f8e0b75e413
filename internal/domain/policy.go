package domain

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Job-for selections accepted at booking intake
const (
	JobForMale              = "male"
	JobForFemale            = "female"
	JobForNormal            = "normal"
	JobForCertified         = "certified"
	JobForCertifiedInLaw    = "certified_in_law"
	JobForCertifiedInHealth = "certified_in_health"

	jobForCertifiedInHealthLegacy = "certified_in_helth"
)

// WillExpireAt returns the moment an unaccepted booking stops being offered
// to translators, given its due time and the time it was (re)opened.
func WillExpireAt(due, createdAt time.Time) time.Time {
	lead := due.Sub(createdAt)
	switch {
	case lead <= 24*time.Hour:
		return due
	case lead <= 48*time.Hour:
		return createdAt.Add(16 * time.Hour)
	case lead <= 90*time.Hour:
		return createdAt.Add(90 * time.Minute)
	default:
		return due.Add(-48 * time.Hour)
	}
}

// CertificationFor maps a job-for selection to a certification level.
// Precedence: combinations with "normal" first, then single certifications.
func CertificationFor(jobFor []string) Certification {
	has := func(v string) bool { return slices.Contains(jobFor, v) }
	health := has(JobForCertifiedInHealth) || has(jobForCertifiedInHealthLegacy)

	switch {
	case has(JobForNormal) && has(JobForCertified):
		return CertBoth
	case has(JobForNormal) && has(JobForCertifiedInLaw):
		return CertNormalLaw
	case has(JobForNormal) && health:
		return CertNormalHealth
	case has(JobForCertified):
		return CertCertified
	case has(JobForCertifiedInLaw):
		return CertLaw
	case health:
		return CertHealth
	}
	return CertNormal
}

// GenderFor picks the requested gender from a job-for selection
func GenderFor(jobFor []string) Gender {
	switch {
	case slices.Contains(jobFor, JobForMale):
		return GenderMale
	case slices.Contains(jobFor, JobForFemale):
		return GenderFemale
	}
	return GenderNone
}

// JobTypeFor derives the job type from the customer's consumer type
func JobTypeFor(consumerType string) JobType {
	switch consumerType {
	case ConsumerRWS:
		return JobTypeRWS
	case ConsumerNGO:
		return JobTypeUnpaid
	default:
		return JobTypePaid
	}
}

// JobForLabels renders gender and certification back into the labels shown
// to translators in broadcast payloads.
func JobForLabels(g Gender, c Certification) []string {
	var labels []string
	switch g {
	case GenderMale:
		labels = append(labels, "Man")
	case GenderFemale:
		labels = append(labels, "Kvinna")
	}
	switch c {
	case CertBoth:
		labels = append(labels, JobForNormal, JobForCertified)
	case CertCertified:
		labels = append(labels, JobForCertified)
	case "":
	default:
		labels = append(labels, string(c))
	}
	return labels
}

// OffersJobType reports whether a translator of translatorType is offered jobs of type t
func OffersJobType(translatorType string, t JobType) bool {
	switch translatorType {
	case TranslatorProfessional:
		return true
	case TranslatorRWS:
		return t == JobTypeRWS
	case TranslatorVolunteer:
		return t == JobTypeUnpaid
	default:
		return false
	}
}

// EligibleTranslator reports whether translator may be offered job. town is
// the place the session happens, used only for physical-only bookings.
func EligibleTranslator(job *Job, translator *User, town string) bool {
	if !translator.IsTranslator() {
		return false
	}
	if !translator.SpeaksLanguage(job.FromLanguageID) {
		return false
	}
	if !OffersJobType(translator.TranslatorType, job.JobType) {
		return false
	}
	if job.Gender != GenderNone && translator.Gender != job.Gender {
		return false
	}
	if job.PhysicalOnly() && !strings.EqualFold(strings.TrimSpace(translator.City), strings.TrimSpace(town)) {
		return false
	}
	return true
}

// FormatSessionTime renders d as "H tim M min"
func FormatSessionTime(d time.Duration) string {
	if d < 0 {
		d = -d
	}
	h := int(d / time.Hour)
	m := int((d % time.Hour) / time.Minute)
	return fmt.Sprintf("%d tim %d min", h, m)
}

// ParseSessionTime parses an "H:M" or "H:M:S" session length
func ParseSessionTime(s string) (time.Duration, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid session time %q", s)
	}

	units := []time.Duration{time.Hour, time.Minute, time.Second}
	var total time.Duration
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid session time %q", s)
		}
		total += time.Duration(n) * units[i]
	}
	return total, nil
}
