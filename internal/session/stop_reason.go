package session

type StopReason string

const (
	StopReasonStopRequested StopReason = "stop_requested"
	StopReasonStreamEnded   StopReason = "stream_ended"
	StopReasonFetchFailed   StopReason = "fetch_failed"
	StopReasonDecodeFailed  StopReason = "decode_failed"
	StopReasonServerClosed  StopReason = "server_closed"
	StopReasonUnknownError  StopReason = "unknown_error"
)

func (r StopReason) Detail() string {
	switch r {
	case StopReasonStopRequested:
		return "The session was stopped on request."
	case StopReasonStreamEnded:
		return "The stream ended."
	case StopReasonFetchFailed:
		return "The stream could not be fetched."
	case StopReasonDecodeFailed:
		return "The stream audio could not be decoded."
	case StopReasonServerClosed:
		return "The server was shut down."
	default:
		return "An unknown error occurred."
	}
}
