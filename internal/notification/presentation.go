package notification

import "sync"

// Presentation controls how a delivered notification is shown on device.
type Presentation struct {
	ShowAlert bool
	PlaySound bool
	SetBadge  bool
}

var DefaultPresentation = Presentation{ShowAlert: true, PlaySound: true, SetBadge: true}

var (
	presentation     = DefaultPresentation
	presentationOnce sync.Once
)

// Configure sets the process-wide presentation. Only the first call takes
// effect; main calls it once during bootstrap.
func Configure(p Presentation) {
	presentationOnce.Do(func() {
		presentation = p
	})
}

func CurrentPresentation() Presentation {
	return presentation
}
