package executor

type CallState string

const FORMATTING CallState = "FORMATTING"
const INVOKING CallState = "INVOKING"
const PARSING CallState = "PARSING"
const VALIDATING CallState = "VALIDATING"
const SUCCESS CallState = "SUCCESS"
const FAILED CallState = "FAILED"

func (s CallState) Terminal() bool {
	return s == SUCCESS || s == FAILED
}
