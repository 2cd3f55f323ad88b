package models

import "fmt"

// TestType identifies one of the psychological test formats. The string
// values double as ledger keys and URL segments.
type TestType string

const (
	WordAssociation   TestType = "wat"
	SituationReaction TestType = "srt"
	PictureStory      TestType = "tat"
	PhotoStory        TestType = "ppdt"
)

// AllTestTypes lists every supported test type, in presentation order.
func AllTestTypes() []TestType {
	return []TestType{WordAssociation, SituationReaction, PictureStory, PhotoStory}
}

// ParseTestType validates a client-supplied test type string.
func ParseTestType(s string) (TestType, error) {
	switch TestType(s) {
	case WordAssociation, SituationReaction, PictureStory, PhotoStory:
		return TestType(s), nil
	}
	return "", fmt.Errorf("unknown test type %q", s)
}

// PromptKey builds the stable identifier for one prompt of a session:
// the test type plus the prompt's index into its content bank. Responses
// are keyed on it, so it must not depend on the shuffled order.
func PromptKey(t TestType, bankIndex int64) string {
	return fmt.Sprintf("%s-%d", t, bankIndex)
}
