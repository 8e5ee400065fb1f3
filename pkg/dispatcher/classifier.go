package dispatcher

import (
	"regexp"
	"strconv"
	"strings"

	"content-studio-be/pkg/workflow"
)

// Classifier maps a turn to a workflow signal
type Classifier interface {
	Classify(message string, attachments []Attachment, stage workflow.Stage) workflow.Signal
}

type pattern struct {
	signal workflow.Signal
	re     *regexp.Regexp
}

// Checked in order; the first match wins.
var textPatterns = []pattern{
	{workflow.SignalCampaignRequested, regexp.MustCompile(`\b(campaign|content calendar|content plan|posts? (per|a|each) week|weekly (posts|content)|next week)\b`)},
	{workflow.SignalCaptionRequested, regexp.MustCompile(`\b(caption|hashtags?)\b`)},
	{workflow.SignalAnimationRequested, regexp.MustCompile(`\b(animate|animation|video|cinemagraph|motion)\b`)},
	{workflow.SignalEditRequested, regexp.MustCompile(`\b(edit|change|modify|adjust|tweak|replace|remove|make it|brighter|darker|bigger|smaller)\b`)},
	{workflow.SignalIdeasRequested, regexp.MustCompile(`\b(ideas?|suggest|suggestions?|inspire|inspiration)\b`)},
	{workflow.SignalGenerationRequest, regexp.MustCompile(`\b(generate|create|make|design|draw|produce)\b.*\b(image|post|visual|picture|graphic|poster|banner|one|it)\b`)},
}

var (
	ideaPickPattern    = regexp.MustCompile(`^(?:idea\s*)?#?\s*(\d+)\s*[.!]?$|^(?:option|number|idea)\s+(\d+)\b`)
	affirmPattern      = regexp.MustCompile(`^(yes|yep|yeah|sure|ok|okay|go ahead|sounds good|let'?s do it|do it|generate it)\b`)
	completionPattern  = regexp.MustCompile(`^(done|that'?s all|that is all|finish(ed)?|all good|thanks?|thank you)([\s,]+(thanks?|thank you|so much))?[\s.!]*$`)
	brandStatementText = regexp.MustCompile(`\b(our|my) (company|brand|business|shop|store)\b|\bwe are\b|\bwe're\b|\bcompany name\b|\bwe sell\b`)
)

// KeywordClassifier is the default, deterministic classifier. Attachments
// outrank text; a few short answers are read in light of the current stage.
type KeywordClassifier struct{}

func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{}
}

func (KeywordClassifier) Classify(message string, attachments []Attachment, stage workflow.Stage) workflow.Signal {
	if HasBrandInfo(attachments) {
		return workflow.SignalBrandInfoProvided
	}

	text := strings.ToLower(strings.TrimSpace(message))
	if text == "" {
		return workflow.SignalNone
	}

	if stage == workflow.StageIdeaSelection || stage == workflow.StageIdle {
		if _, ok := PickedIdea(text); ok {
			return workflow.SignalIdeaSelected
		}
	}
	if stage == workflow.StageIdeaSelection && affirmPattern.MatchString(text) {
		return workflow.SignalGenerationRequest
	}
	// only a bare sign-off ends the turn; "thanks, now write a caption" is a request
	if completionPattern.MatchString(text) {
		return workflow.SignalTurnCompleted
	}

	for _, p := range textPatterns {
		if p.re.MatchString(text) {
			return p.signal
		}
	}

	if stage == workflow.StageBrandSetup && brandStatementText.MatchString(text) {
		return workflow.SignalBrandInfoProvided
	}
	return workflow.SignalNone
}

// PickedIdea extracts a 1-based idea number from replies like "2" or "idea 3"
func PickedIdea(message string) (int, bool) {
	m := ideaPickPattern.FindStringSubmatch(strings.ToLower(strings.TrimSpace(message)))
	if m == nil {
		return 0, false
	}
	digits := m[1]
	if digits == "" {
		digits = m[2]
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// isAffirmation reports a bare "yes, go ahead" style reply
func isAffirmation(message string) bool {
	return affirmPattern.MatchString(strings.ToLower(strings.TrimSpace(message)))
}
