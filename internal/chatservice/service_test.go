package chatservice

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/starford/lifeone/internal/apperr"
	"github.com/starford/lifeone/internal/conflict"
	"github.com/starford/lifeone/internal/llm"
	"github.com/starford/lifeone/internal/models"
	"github.com/starford/lifeone/internal/store"
)

var fixedNow = time.Date(2025, 3, 10, 5, 0, 0, 0, time.UTC)

func newState() *store.State {
	var n atomic.Int64
	return store.New(store.NewData(),
		store.WithClock(func() time.Time { return fixedNow }),
		store.WithIDs(func() string { return fmt.Sprintf("id-%d", n.Add(1)) }),
	)
}

// scripted answers each call with the next reply and records the requests.
type scripted struct {
	mu      sync.Mutex
	replies []string
	reqs    []llm.Request
}

func (s *scripted) Chat(_ context.Context, req llm.Request) (llm.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reqs = append(s.reqs, req)
	if len(s.replies) == 0 {
		return llm.Result{}, errors.New("no scripted reply")
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	return llm.Result{Text: r, Duration: time.Millisecond}, nil
}

func TestSendMessage_InsertsWithoutConflicts(t *testing.T) {
	st := newState()
	cs := st.CreateSession("")
	ai := &scripted{replies: []string{
		`{"answer":"등록했어요","dataExtraction":{"schedule":[{"title":"회의","date":"2025-03-10"}],"contacts":[{"name":"김민준"}]}}`,
	}}
	svc := New(st, ai)

	reply, err := svc.SendMessage(context.Background(), cs.ID, Input{Text: "내일 회의, 김민준 연락처 추가"})
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if reply.Outcome.Inserted != 2 || reply.Conflicts != nil {
		t.Errorf("reply = %+v", reply)
	}
	if reply.Message.Text != "등록했어요" || reply.State != "idle" {
		t.Errorf("message = %+v state = %s", reply.Message, reply.State)
	}
	got, _ := st.GetSession(cs.ID)
	if len(got.Messages) != 2 || got.Messages[0].Role != models.RoleUser || got.Messages[1].Role != models.RoleModel {
		t.Errorf("messages = %+v", got.Messages)
	}
	if got.Title == "" {
		t.Error("session should be titled from the first message")
	}
}

func TestSendMessage_EmptyInput(t *testing.T) {
	st := newState()
	cs := st.CreateSession("")
	ai := &scripted{}
	svc := New(st, ai)

	reply, err := svc.SendMessage(context.Background(), cs.ID, Input{Text: "   "})
	if !errors.Is(err, apperr.ErrEmptyInput) {
		t.Fatalf("err = %v", err)
	}
	if reply.Message.Text != "입력된 내용이 없습니다." {
		t.Errorf("answer = %q", reply.Message.Text)
	}
	if len(ai.reqs) != 0 {
		t.Error("empty input must not reach the provider")
	}
	got, _ := st.GetSession(cs.ID)
	if len(got.Messages) != 0 {
		t.Errorf("messages = %+v", got.Messages)
	}
}

func TestSendMessage_ProviderFailure(t *testing.T) {
	st := newState()
	cs := st.CreateSession("")
	before := st.Snapshot()
	svc := New(st, llm.Func(func(context.Context, llm.Request) (llm.Result, error) {
		return llm.Result{}, errors.New("connection refused")
	}))

	reply, err := svc.SendMessage(context.Background(), cs.ID, Input{Text: "회의 잡아줘"})
	if !errors.Is(err, apperr.ErrUpstream) {
		t.Fatalf("err = %v", err)
	}
	if reply.Message.Text != FailureText || !reply.Message.IsError {
		t.Errorf("message = %+v", reply.Message)
	}
	got, _ := st.GetSession(cs.ID)
	if len(got.Messages) != 2 || got.Messages[0].Text != "회의 잡아줘" || !got.Messages[1].IsError {
		t.Errorf("messages = %+v", got.Messages)
	}
	after := st.Snapshot()
	if len(after.Schedule) != len(before.Schedule) || len(after.Contacts) != len(before.Contacts) {
		t.Error("failure must not touch records")
	}
}

func TestSendMessage_BusySession(t *testing.T) {
	st := newState()
	cs := st.CreateSession("")
	entered := make(chan struct{})
	unblock := make(chan struct{})
	svc := New(st, llm.Func(func(context.Context, llm.Request) (llm.Result, error) {
		close(entered)
		<-unblock
		return llm.Result{Text: `{"answer":"ok"}`}, nil
	}))

	done := make(chan error, 1)
	go func() {
		_, err := svc.SendMessage(context.Background(), cs.ID, Input{Text: "첫 번째"})
		done <- err
	}()
	<-entered

	if _, err := svc.SendMessage(context.Background(), cs.ID, Input{Text: "두 번째"}); !errors.Is(err, apperr.ErrBusy) {
		t.Errorf("second send err = %v, want ErrBusy", err)
	}
	if !svc.IsBusy(cs.ID) {
		t.Error("session should be busy")
	}
	close(unblock)
	if err := <-done; err != nil {
		t.Fatalf("first send: %v", err)
	}
	if svc.IsBusy(cs.ID) {
		t.Error("session should be released")
	}
}

func TestSendMessage_DeletedSessionDiscardsReply(t *testing.T) {
	st := newState()
	cs := st.CreateSession("")
	svc := New(st, llm.Func(func(context.Context, llm.Request) (llm.Result, error) {
		_ = st.DeleteSession(cs.ID)
		return llm.Result{Text: `{"answer":"ok","dataExtraction":{"contacts":[{"name":"이서연"}]}}`}, nil
	}))

	if _, err := svc.SendMessage(context.Background(), cs.ID, Input{Text: "이서연 추가"}); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
	if n := len(st.ListContacts("")); n != 0 {
		t.Errorf("contacts = %d, want 0", n)
	}
}

func TestSendMessage_DeletionConfirmationFlow(t *testing.T) {
	st := newState()
	c, err := st.AddContact(models.Contact{Name: "김민준"})
	if err != nil {
		t.Fatalf("AddContact: %v", err)
	}
	cs := st.CreateSession("")
	ai := &scripted{replies: []string{
		fmt.Sprintf(`{"answer":"김민준 연락처를 삭제할까요?","clarificationNeeded":true,"clarificationOptions":["네","아니요"],"dataDeletion":{"contacts":[%q]}}`, c.ID),
		`{"answer":"삭제했어요"}`,
	}}
	svc := New(st, ai)
	ctx := context.Background()

	reply, err := svc.SendMessage(ctx, cs.ID, Input{Text: "김민준 삭제해줘"})
	if err != nil {
		t.Fatalf("first turn: %v", err)
	}
	if reply.State != "awaiting_deletion_confirmation" || reply.Message.PendingDeletion == nil {
		t.Fatalf("reply = %+v", reply)
	}
	if len(st.ListContacts("")) != 1 {
		t.Fatal("nothing may be deleted before confirmation")
	}

	reply, err = svc.SelectOption(ctx, cs.ID, "네")
	if err != nil {
		t.Fatalf("SelectOption: %v", err)
	}
	if reply.Outcome.Deleted != 1 || len(st.ListContacts("")) != 0 {
		t.Errorf("outcome = %+v", reply.Outcome)
	}
	if len(st.ListTrash("")) != 1 {
		t.Error("deleted contact should be in the trash")
	}

	// The second call sees the question and the answer in order.
	msgs := ai.reqs[1].Messages
	n := len(msgs)
	if n < 4 {
		t.Fatalf("history = %+v", msgs)
	}
	if msgs[n-2].Role != llm.RoleAssistant || msgs[n-2].Content != "김민준 연락처를 삭제할까요?" {
		t.Errorf("question = %+v", msgs[n-2])
	}
	if msgs[n-1].Role != llm.RoleUser || msgs[n-1].Content != "네" {
		t.Errorf("answer = %+v", msgs[n-1])
	}
}

func TestSendMessage_FollowUpQuestionKeepsRecords(t *testing.T) {
	st := newState()
	a, _ := st.AddContact(models.Contact{Name: "김민준"})
	b, _ := st.AddContact(models.Contact{Name: "김민지"})
	cs := st.CreateSession("")
	ai := &scripted{replies: []string{
		fmt.Sprintf(`{"answer":"두 연락처를 삭제할까요?","clarificationNeeded":true,"clarificationOptions":["네","아니요"],"dataDeletion":{"contacts":[%q,%q]}}`, a.ID, b.ID),
		`{"answer":"어느 연락처인가요?","clarificationNeeded":true,"clarificationOptions":["김민준","김민지"]}`,
	}}
	svc := New(st, ai)
	ctx := context.Background()

	if _, err := svc.SendMessage(ctx, cs.ID, Input{Text: "김민 연락처 지워줘"}); err != nil {
		t.Fatalf("first turn: %v", err)
	}
	reply, err := svc.SendMessage(ctx, cs.ID, Input{Text: "네 번째 줄에 있는 것만 지워줘"})
	if err != nil {
		t.Fatalf("second turn: %v", err)
	}
	if reply.State != "awaiting_clarification" || reply.Outcome.Deleted != 0 {
		t.Errorf("state = %s outcome = %+v", reply.State, reply.Outcome)
	}
	if n := len(st.ListContacts("")); n != 2 {
		t.Errorf("contacts = %d, want 2", n)
	}
}

func TestSendMessage_UnconfirmedDeletionDropped(t *testing.T) {
	st := newState()
	e, _ := st.AddExpense(models.Expense{Item: "커피", Amount: decimal.NewFromInt(4500)})
	cs := st.CreateSession("")
	svc := New(st, &scripted{replies: []string{
		fmt.Sprintf(`{"answer":"삭제했어요","dataDeletion":{"expenses":[%q]}}`, e.ID),
	}})

	reply, err := svc.SendMessage(context.Background(), cs.ID, Input{Text: "커피 지워"})
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if reply.Outcome.Deleted != 0 || len(st.ListExpenses("", "")) != 1 {
		t.Errorf("unconfirmed deletion applied: %+v", reply.Outcome)
	}
}

func TestSelectOption_Invalid(t *testing.T) {
	st := newState()
	cs := st.CreateSession("")
	svc := New(st, &scripted{})

	if _, err := svc.SelectOption(context.Background(), cs.ID, "네"); !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("no open question: err = %v", err)
	}

	_, _ = st.AppendMessages(cs.ID, models.ChatMessage{
		ID: "q", Role: models.RoleModel, Text: "어떤 그룹?", ClarificationNeeded: true,
		ClarificationOptions: []string{"To-do list", "메모"},
	})
	if _, err := svc.SelectOption(context.Background(), cs.ID, "일정"); !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("unknown option: err = %v", err)
	}
}

func conflictSetup(t *testing.T) (*store.State, *Service, string, models.Contact) {
	t.Helper()
	st := newState()
	existing, err := st.AddContact(models.Contact{Name: "김민준", Phone: "01011112222"})
	if err != nil {
		t.Fatalf("AddContact: %v", err)
	}
	cs := st.CreateSession("")
	svc := New(st, &scripted{replies: []string{
		`{"answer":"추가할게요","dataExtraction":{"contacts":[{"name":"김민준","phone":"010-9999-8888"}],"diary":[{"entry":"메모"}]}}`,
	}})
	reply, err := svc.SendMessage(context.Background(), cs.ID, Input{Text: "김민준 번호 저장"})
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if reply.Conflicts == nil || len(reply.Conflicts.Contacts) != 1 ||
		len(reply.Conflicts.Schedule) != 0 || len(reply.Conflicts.Expenses) != 0 {
		t.Fatalf("conflicts = %+v", reply.Conflicts)
	}
	if reply.Outcome.Inserted != 0 {
		t.Fatalf("batch must wait for a decision: %+v", reply.Outcome)
	}
	return st, svc, cs.ID, existing
}

func TestResolveConflicts_Overwrite(t *testing.T) {
	st, svc, id, existing := conflictSetup(t)

	res, err := svc.ResolveConflicts(context.Background(), id, conflict.Overwrite)
	if err != nil {
		t.Fatalf("ResolveConflicts: %v", err)
	}
	if res.Outcome.Replaced != 1 || res.Outcome.Inserted != 1 {
		t.Errorf("outcome = %+v", res.Outcome)
	}
	contacts := st.ListContacts("")
	if len(contacts) != 1 || contacts[0].ID != existing.ID || contacts[0].Phone != "01099998888" {
		t.Errorf("contacts = %+v", contacts)
	}
	if _, err := svc.ResolveConflicts(context.Background(), id, conflict.Overwrite); !errors.Is(err, apperr.ErrNoPending) {
		t.Errorf("second resolve err = %v", err)
	}
}

func TestResolveConflicts_Ignore(t *testing.T) {
	st, svc, id, _ := conflictSetup(t)

	if _, err := svc.ResolveConflicts(context.Background(), id, conflict.Ignore); err != nil {
		t.Fatalf("ResolveConflicts: %v", err)
	}
	if n := len(st.ListContacts("김민준")); n != 2 {
		t.Errorf("contacts named 김민준 = %d, want 2", n)
	}
}

func TestResolveConflicts_CancelHasNoSideEffects(t *testing.T) {
	st, svc, id, _ := conflictSetup(t)
	before := st.Snapshot()

	res, err := svc.ResolveConflicts(context.Background(), id, conflict.Cancel)
	if err != nil {
		t.Fatalf("ResolveConflicts: %v", err)
	}
	if res.Outcome.Mutated() {
		t.Errorf("outcome = %+v", res.Outcome)
	}
	after := st.Snapshot()
	if len(after.Contacts) != len(before.Contacts) || len(after.Diary) != len(before.Diary) {
		t.Error("cancel must not write records")
	}
	if _, _, err := svc.Pending(id); !errors.Is(err, apperr.ErrNoPending) {
		t.Errorf("pending after cancel: %v", err)
	}
}

func TestResolveConflicts_InvalidDecision(t *testing.T) {
	st := newState()
	cs := st.CreateSession("")
	svc := New(st, &scripted{})
	if _, err := svc.ResolveConflicts(context.Background(), cs.ID, "merge"); !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("err = %v", err)
	}
	if _, err := svc.ResolveConflicts(context.Background(), cs.ID, conflict.Cancel); !errors.Is(err, apperr.ErrNoPending) {
		t.Errorf("err = %v", err)
	}
}
