package taskname

const (
	// Game of the day tasks
	GotdRotate = "gotd:rotate"
)
