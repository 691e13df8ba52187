package enums

// AuditAction labels the transition captured by a unit audit record.
type AuditAction string

const (
	AuditActionCreate         AuditAction = "CREATE"
	AuditActionReserve        AuditAction = "RESERVE"
	AuditActionRelease        AuditAction = "RELEASE"
	AuditActionSell           AuditAction = "SELL"
	AuditActionReturn         AuditAction = "RETURN"
	AuditActionStatusChange   AuditAction = "STATUS_CHANGE"
	AuditActionImport         AuditAction = "IMPORT"
	AuditActionGenerate       AuditAction = "GENERATE"
	AuditActionPaymentTimeout AuditAction = "PAYMENT_TIMEOUT"
)

var auditActions = []AuditAction{
	AuditActionCreate, AuditActionReserve, AuditActionRelease,
	AuditActionSell, AuditActionReturn, AuditActionStatusChange,
	AuditActionImport, AuditActionGenerate, AuditActionPaymentTimeout,
}

func (a AuditAction) String() string { return string(a) }

func (a AuditAction) IsValid() bool { return member(auditActions, a) }
