package assistant

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/starford/lifeone/internal/models"
)

// StateKind is the phase of a conversation with respect to follow-ups.
type StateKind int

const (
	Idle StateKind = iota
	AwaitingClarification
	AwaitingDeletionConfirmation
)

func (k StateKind) String() string {
	switch k {
	case AwaitingClarification:
		return "awaiting_clarification"
	case AwaitingDeletionConfirmation:
		return "awaiting_deletion_confirmation"
	default:
		return "idle"
	}
}

// ClarifyState is derived from chat history and never stored on its own.
type ClarifyState struct {
	Kind    StateKind
	Options []string
	// Targets holds the ids the model proposed while asking for deletion
	// confirmation. It may be empty.
	Targets models.IDSet
}

// Yes/no options used for deletion confirmations.
const (
	OptionYes = "네"
	OptionNo  = "아니요"
)

// StateOf derives the state from history, looking only at the last message.
func StateOf(history []models.ChatMessage) ClarifyState {
	if len(history) == 0 {
		return ClarifyState{Kind: Idle}
	}
	last := history[len(history)-1]
	if last.Role != models.RoleModel || last.IsError || !last.ClarificationNeeded {
		return ClarifyState{Kind: Idle}
	}
	if IsYesNo(last.ClarificationOptions) {
		st := ClarifyState{Kind: AwaitingDeletionConfirmation, Options: last.ClarificationOptions}
		if last.PendingDeletion != nil {
			st.Targets = *last.PendingDeletion
		}
		return st
	}
	return ClarifyState{Kind: AwaitingClarification, Options: last.ClarificationOptions}
}

// After returns the state a model reply leads to.
func After(resp Response) ClarifyState {
	if !resp.ClarificationNeeded {
		return ClarifyState{Kind: Idle}
	}
	if IsYesNo(resp.ClarificationOptions) {
		return ClarifyState{Kind: AwaitingDeletionConfirmation, Options: resp.ClarificationOptions, Targets: resp.DataDeletion}
	}
	return ClarifyState{Kind: AwaitingClarification, Options: resp.ClarificationOptions}
}

// IsYesNo reports whether options are exactly the yes/no pair.
func IsYesNo(options []string) bool {
	return len(options) == 2 && MatchKey(options[0]) == MatchKey(OptionYes) && MatchKey(options[1]) == MatchKey(OptionNo)
}

// HasOption reports whether choice is one of st's options.
func (st ClarifyState) HasOption(choice string) bool {
	key := MatchKey(choice)
	for _, o := range st.Options {
		if MatchKey(o) == key {
			return true
		}
	}
	return false
}

var affirmatives = map[string]bool{
	"네": true, "넵": true, "예": true, "응": true, "어": true, "그래": true,
	"좋아": true, "좋아요": true, "확인": true, "삭제": true, "삭제해": true, "삭제해줘": true,
	"yes": true, "y": true, "ok": true, "okay": true,
}

// fillers may follow an affirmative without changing its meaning.
var fillers = map[string]bool{
	"주세요": true, "줘": true, "해주세요": true, "해줘": true, "please": true,
}

// IsAffirmative reports whether reply confirms a yes/no question, after
// trimming, case folding and dropping trailing punctuation. It holds when the
// first word is an affirmative set off by punctuation ("네, 지워"), or when
// every word is an affirmative or a filler ("네 삭제해 주세요"). Replies that
// merely start with one, like "네 번째 줄" or "네가 뭘 알아", do not confirm.
func IsAffirmative(reply string) bool {
	key := MatchKey(reply)
	if key == "" {
		return false
	}
	if affirmatives[key] {
		return true
	}

	if i := strings.IndexFunc(key, func(r rune) bool { return unicode.IsSpace(r) || unicode.IsPunct(r) }); i > 0 {
		r, _ := utf8.DecodeRuneInString(key[i:])
		if strings.ContainsRune(",.!", r) && affirmatives[key[:i]] {
			return true
		}
	}

	words := strings.FieldsFunc(key, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	})
	if len(words) == 0 || !affirmatives[words[0]] {
		return false
	}
	for _, w := range words[1:] {
		if !affirmatives[w] && !fillers[w] {
			return false
		}
	}
	return true
}

// MatchKey is the comparison form of a reply or option.
func MatchKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.TrimRightFunc(s, func(r rune) bool { return unicode.IsPunct(r) || unicode.IsSpace(r) })
}

// ConfirmedDeletion decides which ids a reply may delete. prev is the state
// before the user's reply; resp is the model's answer to that reply. Nothing
// is deleted while resp still asks a question: the pending targets only apply
// once the model has settled. It returns false when nothing may be deleted.
func ConfirmedDeletion(prev ClarifyState, reply string, resp Response) (models.IDSet, bool) {
	if prev.Kind != AwaitingDeletionConfirmation || !IsAffirmative(reply) {
		return models.IDSet{}, false
	}
	if After(resp).Kind != Idle {
		return models.IDSet{}, false
	}
	if !resp.DataDeletion.Empty() {
		return resp.DataDeletion, true
	}
	if !prev.Targets.Empty() {
		return prev.Targets, true
	}
	return models.IDSet{}, false
}
