package pipeline

// classifyStatus maps an upstream HTTP status code to "success",
// "transient_failure" (network/429/5xx, worth a retry) or
// "permanent_failure" (any other 4xx, worth dropping), mirroring the
// teacher's classifyFailureCode shape generalized from job-error strings to
// HTTP status classes.
func classifyStatus(status int) string {
	switch {
	case status == 0:
		return "transient_failure" // network error, no status received
	case status >= 200 && status < 300:
		return "success"
	case status == 429:
		return "transient_failure"
	case status >= 500:
		return "transient_failure"
	case status >= 400:
		return "permanent_failure"
	default:
		return "success"
	}
}
