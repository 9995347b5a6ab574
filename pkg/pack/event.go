package pack

// Stage is a state in a packing Job's lifecycle.
type Stage uint8

const (
	StageIdle Stage = iota
	StageReading
	StageClassifying
	StageCompressing
	StageKeyGen
	StageEncrypting
	StageBuilding
	StageDone
	StageUnsupported
	StageFailed
)

// Percent is the progress reported when the Stage is entered.
// Percents never decrease along any path through the lifecycle, and every terminal Stage reports 100.
func (s Stage) Percent() int {
	switch s {
	case StageReading:
		return 10
	case StageClassifying:
		return 15
	case StageCompressing:
		return 20
	case StageKeyGen:
		return 30
	case StageEncrypting:
		return 40
	case StageBuilding:
		return 60
	case StageDone, StageUnsupported, StageFailed:
		return 100
	default:
		return 0
	}
}

// Terminal reports whether the Stage ends a Job.
func (s Stage) Terminal() bool {
	return s == StageDone || s == StageUnsupported || s == StageFailed
}

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageReading:
		return "reading"
	case StageClassifying:
		return "classifying"
	case StageCompressing:
		return "compressing"
	case StageKeyGen:
		return "generating keys"
	case StageEncrypting:
		return "encrypting"
	case StageBuilding:
		return "building"
	case StageDone:
		return "done"
	case StageUnsupported:
		return "unsupported"
	case StageFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event reports a Job's progress.
// Exactly one Event per Job is terminal, and it's the last one sent before the channel is closed.
type Event struct {
	Stage   Stage
	Message string
	Percent int
	// Result is only set on the terminal Event.
	Result *Result
}

// Terminal reports whether this is the last Event of the Job.
func (e Event) Terminal() bool {
	return e.Result != nil
}
