package retry

// Stage identifies where in the connector pipeline an operation runs.
type Stage string

const (
	// StageTaskPoll covers fetching records from the external system or broker.
	StageTaskPoll Stage = "task_poll"
	// StageConverter covers record (de)serialization between source and queue form.
	StageConverter Stage = "converter"
	// StageTransformation covers the record transform chain.
	StageTransformation Stage = "transformation"
	// StageTaskPut covers handing records to the broker or sink.
	StageTaskPut Stage = "task_put"
)

// ErrorClass is the category of errors a stage tolerates. Tolerated errors
// count toward the tolerance policy instead of failing the pipeline outright.
type ErrorClass int

const (
	// ClassRetriable tolerates only errors marked with Retriable.
	ClassRetriable ErrorClass = iota
	// ClassAny tolerates every error.
	ClassAny
)

// Conversion and transformation failures are record-local (bad data, not a
// broken pipeline), so any error there is eligible for tolerance accounting.
var tolerableClasses = map[Stage]ErrorClass{
	StageTransformation: ClassAny,
	StageConverter:      ClassAny,
}

// TolerableFor returns the error class tolerated at the given stage.
// Stages without an explicit entry tolerate only retriable errors.
func TolerableFor(stage Stage) ErrorClass {
	if c, ok := tolerableClasses[stage]; ok {
		return c
	}
	return ClassRetriable
}

// Tolerates reports whether err belongs to the class.
func (c ErrorClass) Tolerates(err error) bool {
	if c == ClassAny {
		return true
	}
	return IsRetriable(err)
}
