package results

import (
	"math/rand/v2"
	"strings"

	"signaware-client/internal/gateway"
)

// Topic is the subject a chat reply answered.
type Topic string

const (
	TopicRisk      Topic = "risk"
	TopicConcerns  Topic = "concerns"
	TopicFlags     Topic = "flags"
	TopicLoopholes Topic = "loopholes"
	TopicFallback  Topic = "fallback"
)

// Greeting seeds every chat.
const Greeting = "Hello! I've analyzed your document. Feel free to ask me any questions about the terms, risks, or specific clauses."

var topicKeywords = []struct {
	topic    Topic
	keywords []string
}{
	{TopicRisk, []string{"risk", "score"}},
	{TopicConcerns, []string{"concern", "issue"}},
	{TopicFlags, []string{"flag", "red"}},
	{TopicLoopholes, []string{"loophole"}},
}

// Responder answers chat questions from a stored payload. Pick chooses an
// index in [0, n) and defaults to a uniform random choice.
type Responder struct {
	Pick func(n int) int
}

// Reply answers userText from a using uniform random picks.
func Reply(userText string, a gateway.Analysis) string {
	text, _ := Responder{}.Reply(userText, a)
	return text
}

// MatchTopic returns the first topic whose keywords occur in userText.
func MatchTopic(userText string) Topic {
	lower := strings.ToLower(userText)
	for _, tk := range topicKeywords {
		for _, kw := range tk.keywords {
			if strings.Contains(lower, kw) {
				return tk.topic
			}
		}
	}
	return TopicFallback
}

// Reply answers userText and reports which topic matched.
func (r Responder) Reply(userText string, a gateway.Analysis) (string, Topic) {
	topic := MatchTopic(userText)
	switch topic {
	case TopicRisk:
		reply := "The overall risk score for this document is " + FormatScore(a.RiskScore) + " out of 10."
		if assessment := strings.TrimSpace(a.RiskAssessment); assessment != "" {
			reply += " " + assessment
		}
		return reply, topic
	case TopicConcerns:
		if c, ok := r.pick(a.KeyConcerns); ok {
			return "One key concern in this document: " + c, topic
		}
		return "I didn't find any key concerns in this document.", topic
	case TopicFlags:
		if f, ok := r.pick(a.RedFlags); ok {
			return "Here's a red flag to watch out for: " + f, topic
		}
		return "Good news: no red flags were identified in this document.", topic
	case TopicLoopholes:
		if l, ok := r.pick(a.Loopholes); ok {
			return "A potential loophole in this document: " + l, topic
		}
		return "I didn't find any specific loopholes in this document.", topic
	}
	if summary := strings.TrimSpace(a.Summary); summary != "" {
		return "Here's what the document covers: " + summary + " You can ask me about the risk score, key concerns, red flags or loopholes.", topic
	}
	return "I can answer questions about the risk score, key concerns, red flags and loopholes in this document.", topic
}

func (r Responder) pick(items []string) (string, bool) {
	switch len(items) {
	case 0:
		return "", false
	case 1:
		return items[0], true
	}
	pick := r.Pick
	if pick == nil {
		pick = rand.IntN
	}
	i := pick(len(items))
	if i < 0 || i >= len(items) {
		i = 0
	}
	return items[i], true
}
