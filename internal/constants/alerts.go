package constants

// Alert codes sent to the operator notification collaborator. One code per
// reference table so an operator can tell at a glance which table blocked a
// cycle, plus a generic connection-pressure warning.
const (
	AlertCustomsDutyInvalid  = "REF_CUSTOMS_DUTY_INVALID"
	AlertPercentDutyInvalid  = "REF_PERCENT_DUTY_INVALID"
	AlertUtilizationInvalid  = "REF_UTILIZATION_INVALID"
	AlertExchangeRateInvalid = "REF_EXCHANGE_RATE_INVALID"
	AlertBankRateInvalid     = "REF_BANK_RATE_INVALID"
	AlertClearanceFeeInvalid = "REF_CLEARANCE_FEE_INVALID"
	AlertTooManyConnections  = "TOO_MANY_CONNECTIONS"
)

// AlertMessages maps alert codes to human-readable operator messages.
var AlertMessages = map[string]string{
	AlertCustomsDutyInvalid:  "Customs duty band table is empty or contains null rates",
	AlertPercentDutyInvalid:  "Percent duty band table is empty or contains null rates",
	AlertUtilizationInvalid:  "Utilization rate table is empty or contains null coefficients",
	AlertExchangeRateInvalid: "Exchange rate table is empty or contains null rates",
	AlertBankRateInvalid:     "Bank transfer rate table is empty or contains null rates",
	AlertClearanceFeeInvalid: "Clearance fee band table is empty or contains null fees",
	AlertTooManyConnections:  "Database reports too many open connections",
}

// AlertMessage returns the message for a code, falling back to the code
// itself so an unknown code still produces a useful notification.
func AlertMessage(code string) string {
	if msg, ok := AlertMessages[code]; ok {
		return msg
	}
	return code
}
