package domain

// Status is the lifecycle state of a job
type Status string

// Job status constants
const (
	StatusPending               Status = "pending"
	StatusAssigned              Status = "assigned"
	StatusStarted               Status = "started"
	StatusCompleted             Status = "completed"
	StatusWithdrawBefore24      Status = "withdrawbefore24"
	StatusWithdrawAfter24       Status = "withdrawafter24"
	StatusTimedOut              Status = "timedout"
	StatusNotCarriedOutCustomer Status = "not_carried_out_customer"
)

// Valid reports whether s is one of the known statuses
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAssigned, StatusStarted, StatusCompleted,
		StatusWithdrawBefore24, StatusWithdrawAfter24, StatusTimedOut, StatusNotCarriedOutCustomer:
		return true
	}
	return false
}

// Open reports whether a job in this status still occupies a translator's calendar
func (s Status) Open() bool {
	return s == StatusPending || s == StatusAssigned || s == StatusStarted
}

// JobType classifies who pays for the booking
type JobType string

const (
	JobTypePaid   JobType = "paid"
	JobTypeUnpaid JobType = "unpaid"
	JobTypeRWS    JobType = "rws"
)

// Gender is the requested interpreter gender
type Gender string

const (
	GenderNone   Gender = ""
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// Certification is the requested interpreter certification level
type Certification string

const (
	CertNormal       Certification = "normal"
	CertCertified    Certification = "yes"
	CertBoth         Certification = "both"
	CertNormalLaw    Certification = "n_law"
	CertNormalHealth Certification = "n_health"
	CertLaw          Certification = "law"
	CertHealth       Certification = "health"
)

// Role is the kind of account acting on a booking
type Role string

const (
	RoleCustomer   Role = "customer"
	RoleTranslator Role = "translator"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superadmin"
)

// IsAdmin reports whether the role may use administrative operations
func (r Role) IsAdmin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// Consumer types that drive job type classification
const (
	ConsumerRWS = "rwsconsumer"
	ConsumerNGO = "ngo"
)

// Translator types that drive which job types a translator is offered
const (
	TranslatorProfessional = "professional"
	TranslatorRWS          = "rwstranslator"
	TranslatorVolunteer    = "volunteer"
)
