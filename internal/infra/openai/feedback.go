package openai

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/EfrenHaskell/Cosi166Project/internal/domain"
)

var lineSplit = regexp.MustCompile(`\n+`)

// ParseFeedback converts a model reply into structured feedback. Replies take
// the form:
//
//	**Problems:**
//	  ...free-form lines...
//	**Skills:**
//	  1. **Label:** text
//
// The literal reply "correct" maps to a canned encouragement.
func ParseFeedback(text string) (domain.Feedback, error) {
	if text == "correct" {
		return domain.Feedback{Problems: []string{"Good Job!"}, Raw: text}, nil
	}
	if len(strings.TrimSpace(text)) == 0 {
		return domain.Feedback{}, fmt.Errorf("empty grading response")
	}

	feedback := domain.Feedback{Skills: make(map[string]string), Raw: text}
	section := ""
	for _, line := range lineSplit.Split(text, -1) {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			continue
		case trimmed == "**Problems:**":
			section = "problems"
		case trimmed == "**Skills:**":
			section = "skills"
		case section == "problems":
			feedback.Problems = append(feedback.Problems, line)
		case section == "skills":
			label, text, ok := splitSkill(line)
			if ok {
				feedback.Skills[label] = text
			}
		default:
			return domain.Feedback{}, fmt.Errorf("unexpected grading response format")
		}
	}
	return feedback, nil
}

// splitSkill parses 'N. **Skill Label:** text'. The label runs from just past
// the second star to the first colon; the text is everything after the colon.
func splitSkill(line string) (string, string, bool) {
	head := strings.Index(line, "*")
	tail := strings.Index(line, ":")
	if head < 0 || tail < 0 || head+2 >= tail {
		return "", "", false
	}
	label := strings.TrimSpace(strings.Trim(line[head+2:tail], "*"))
	text := strings.TrimSpace(strings.Trim(line[tail+1:], "*"))
	return label, text, true
}
