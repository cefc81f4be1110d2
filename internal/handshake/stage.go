package handshake

// Stage is a point in the linear handshake state machine.
type Stage int

const (
	StageStart Stage = iota
	StageFirstRequestSent
	StageFirstParsed
	StageSecondRequestSent
	StageSecondParsed
	StageFinalRequestSent
	StageDone
)

var stageNames = [...]string{
	StageStart:             "start",
	StageFirstRequestSent:  "first_request_sent",
	StageFirstParsed:       "first_parsed",
	StageSecondRequestSent: "second_request_sent",
	StageSecondParsed:      "second_parsed",
	StageFinalRequestSent:  "final_request_sent",
	StageDone:              "done",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "unknown"
	}
	return stageNames[s]
}
