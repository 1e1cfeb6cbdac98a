package scraper

// Scrape outcome codes. Composite codes encode a success that needed k
// soft retries: 10+k for captcha refreshes, 20+k for timeout retries.
const (
	StatusSuccess    = 0
	StatusInvalidUSN = 1
	StatusCaptchaMax = 2
	StatusTimeoutMax = 3
	StatusDNS        = 4
	StatusDriver     = 5
	StatusOther      = 6
	StatusRefusedMax = 7

	statusCaptchaRetryBase = 10
	statusTimeoutRetryBase = 20
)

// IsSuccess reports whether a status code carries a student record.
func IsSuccess(code int) bool {
	return code == StatusSuccess ||
		(code > statusCaptchaRetryBase && code < statusTimeoutRetryBase) ||
		code > statusTimeoutRetryBase
}

// StatusText renders a human-readable description of a status code
// for logs and error responses.
func StatusText(code int) string {
	switch {
	case code == StatusSuccess:
		return "success"
	case code == StatusInvalidUSN:
		return "usn is invalid or not available"
	case code == StatusCaptchaMax:
		return "captcha failed too many times"
	case code == StatusTimeoutMax:
		return "connection timed out too many times"
	case code == StatusDNS:
		return "portal hostname could not be resolved"
	case code == StatusDriver:
		return "browser driver error"
	case code == StatusOther:
		return "unclassified scrape error"
	case code == StatusRefusedMax:
		return "connection refused too many times"
	case IsSuccess(code):
		return "success after retries"
	default:
		return "unknown status"
	}
}

// RetryCount extracts the soft-retry count k from a composite success
// code, zero for a clean success or any failure.
func RetryCount(code int) int {
	switch {
	case code > statusTimeoutRetryBase:
		return code - statusTimeoutRetryBase
	case code > statusCaptchaRetryBase && code < statusTimeoutRetryBase:
		return code - statusCaptchaRetryBase
	default:
		return 0
	}
}
