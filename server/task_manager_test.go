// Copyright 2025 The OpenClaw A2A Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	a2a "github.com/swoelffel/OpenClaw-a2a"
)

func newTestManager() *TaskManager {
	return NewTaskManager().WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// echoHandler replies to every message with a single agent text part.
func echoHandler(ctx context.Context, message a2a.Message) (*a2a.Message, []a2a.Artifact, error) {
	reply := a2a.NewAgentTextMessage("echo: " + message.TextContent())
	return &reply, nil, nil
}

func sendParams(id, text string) a2a.TaskSendParams {
	return a2a.TaskSendParams{ID: id, Message: a2a.NewUserTextMessage(text)}
}

// waitForState polls until the task reaches the wanted state.
func waitForState(t *testing.T, tm *TaskManager, id string, state a2a.TaskState) *a2a.Task {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		task, err := tm.GetTask(context.Background(), id)
		if err == nil && task.Status.State == state {
			return task
		}
		time.Sleep(2 * time.Millisecond)
	}
	task, err := tm.GetTask(context.Background(), id)
	t.Fatalf("task %s never reached state %s (last: %+v, err: %v)", id, state, task, err)
	return nil
}

func TestCreateTask_ImmediatelyVisible(t *testing.T) {
	tm := newTestManager()
	tm.SetHandler(echoHandler)

	created, err := tm.CreateTask(context.Background(), sendParams("t1", "hi"))
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	if created.Status.State != a2a.TaskStateSubmitted {
		t.Errorf("expected created snapshot in submitted state, got %s", created.Status.State)
	}

	// The task must be observable right away, whatever state scheduling
	// has driven it to.
	if _, err := tm.GetTask(context.Background(), "t1"); err != nil {
		t.Fatalf("GetTask immediately after CreateTask failed: %v", err)
	}
}

// Exercised with the race detector: CreateTask must not touch the live
// record once execution has started.
func TestCreateTask_ConcurrentWithExecution(t *testing.T) {
	tm := newTestManager()
	tm.SetHandler(echoHandler)

	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := fmt.Sprintf("t%d", i)
			if _, err := tm.CreateTask(context.Background(), sendParams(id, "hi")); err != nil {
				t.Errorf("CreateTask %s failed: %v", id, err)
			}
		}()
	}
	wg.Wait()

	if tasks := tm.GetAllTasks(context.Background()); len(tasks) != 200 {
		t.Errorf("expected 200 tasks, got %d", len(tasks))
	}
}

func TestCreateTask_EmptyID(t *testing.T) {
	tm := newTestManager()
	if _, err := tm.CreateTask(context.Background(), a2a.TaskSendParams{Message: a2a.NewUserTextMessage("hi")}); err == nil {
		t.Fatal("expected error for empty task ID")
	}
}

func TestExecution_Success(t *testing.T) {
	tm := newTestManager()
	tm.SetHandler(echoHandler)

	if _, err := tm.CreateTask(context.Background(), sendParams("t1", "hi")); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	task := waitForState(t, tm, "t1", a2a.TaskStateCompleted)
	if len(task.History) != 2 {
		t.Fatalf("expected history of length 2, got %d", len(task.History))
	}
	if task.History[1].Role != a2a.RoleAgent {
		t.Errorf("expected history[1] role %s, got %s", a2a.RoleAgent, task.History[1].Role)
	}
	if got := task.History[1].TextContent(); got != "echo: hi" {
		t.Errorf("expected reply %q, got %q", "echo: hi", got)
	}
}

func TestExecution_PreservesPartOrder(t *testing.T) {
	tm := newTestManager()
	tm.SetHandler(echoHandler)

	params := a2a.TaskSendParams{
		ID: "t1",
		Message: a2a.Message{
			Role:  a2a.RoleUser,
			Parts: []a2a.Part{a2a.NewTextPart("one"), a2a.NewTextPart("two")},
		},
	}
	if _, err := tm.CreateTask(context.Background(), params); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	task := waitForState(t, tm, "t1", a2a.TaskStateCompleted)
	if len(task.History[0].Parts) != 2 {
		t.Fatalf("expected 2 parts in history[0], got %d", len(task.History[0].Parts))
	}
	first, ok := task.History[0].Parts[0].(a2a.TextPart)
	if !ok || first.Text != "one" {
		t.Errorf("expected first part %q, got %#v", "one", task.History[0].Parts[0])
	}
}

func TestExecution_HandlerError(t *testing.T) {
	tm := newTestManager()
	tm.SetHandler(func(ctx context.Context, message a2a.Message) (*a2a.Message, []a2a.Artifact, error) {
		return nil, nil, errors.New("boom")
	})

	if _, err := tm.CreateTask(context.Background(), sendParams("t1", "hi")); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	task := waitForState(t, tm, "t1", a2a.TaskStateFailed)
	if task.Status.Message != "boom" {
		t.Errorf("expected status message %q, got %q", "boom", task.Status.Message)
	}
	if len(task.History) != 1 {
		t.Errorf("expected history untouched on failure, got %d entries", len(task.History))
	}
}

func TestExecution_HandlerPanic(t *testing.T) {
	tm := newTestManager()
	tm.SetHandler(func(ctx context.Context, message a2a.Message) (*a2a.Message, []a2a.Artifact, error) {
		panic("handler went sideways")
	})

	if _, err := tm.CreateTask(context.Background(), sendParams("t1", "hi")); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	waitForState(t, tm, "t1", a2a.TaskStateFailed)
}

func TestExecution_NoHandler(t *testing.T) {
	tm := newTestManager()

	if _, err := tm.CreateTask(context.Background(), sendParams("t1", "hi")); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	time.Sleep(20 * time.Millisecond)
	task, err := tm.GetTask(context.Background(), "t1")
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if task.Status.State != a2a.TaskStateSubmitted {
		t.Errorf("expected task to remain submitted without a handler, got %s", task.Status.State)
	}
}

func TestExecution_ReplacesArtifacts(t *testing.T) {
	tm := newTestManager()
	tm.SetHandler(func(ctx context.Context, message a2a.Message) (*a2a.Message, []a2a.Artifact, error) {
		reply := a2a.NewAgentTextMessage("done")
		artifacts := []a2a.Artifact{
			{Parts: []a2a.Part{a2a.NewTextPart("first")}, Index: 0},
			{Parts: []a2a.Part{a2a.NewTextPart("second")}, Index: 1},
		}
		return &reply, artifacts, nil
	})

	if _, err := tm.CreateTask(context.Background(), sendParams("t1", "hi")); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	task := waitForState(t, tm, "t1", a2a.TaskStateCompleted)
	if len(task.Artifacts) != 2 {
		t.Fatalf("expected 2 artifacts, got %d", len(task.Artifacts))
	}
	if task.Artifacts[1].Index != 1 {
		t.Errorf("expected artifact order preserved, got %+v", task.Artifacts)
	}
}

func TestSetHandler_MostRecentWins(t *testing.T) {
	tm := newTestManager()
	tm.SetHandler(func(ctx context.Context, message a2a.Message) (*a2a.Message, []a2a.Artifact, error) {
		reply := a2a.NewAgentTextMessage("old")
		return &reply, nil, nil
	})
	tm.SetHandler(func(ctx context.Context, message a2a.Message) (*a2a.Message, []a2a.Artifact, error) {
		reply := a2a.NewAgentTextMessage("new")
		return &reply, nil, nil
	})

	if _, err := tm.CreateTask(context.Background(), sendParams("t1", "hi")); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	task := waitForState(t, tm, "t1", a2a.TaskStateCompleted)
	if got := task.History[1].TextContent(); got != "new" {
		t.Errorf("expected reply from replacement handler, got %q", got)
	}
}

func TestCancelTask(t *testing.T) {
	tm := newTestManager() // no handler: tasks stay submitted

	if _, err := tm.CreateTask(context.Background(), sendParams("t1", "hi")); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	task, err := tm.CancelTask(context.Background(), "t1")
	if err != nil {
		t.Fatalf("CancelTask failed: %v", err)
	}
	if task.Status.State != a2a.TaskStateCanceled {
		t.Errorf("expected state %s, got %s", a2a.TaskStateCanceled, task.Status.State)
	}
}

func TestCancelTask_NotFound(t *testing.T) {
	tm := newTestManager()

	_, err := tm.CancelTask(context.Background(), "missing")
	var notFound a2a.TaskNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected TaskNotFoundError, got %v", err)
	}
	if notFound.TaskID != "missing" {
		t.Errorf("expected task ID missing, got %s", notFound.TaskID)
	}
}

func TestCancelTask_TerminalState(t *testing.T) {
	tm := newTestManager()
	tm.SetHandler(echoHandler)

	if _, err := tm.CreateTask(context.Background(), sendParams("t1", "hi")); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	waitForState(t, tm, "t1", a2a.TaskStateCompleted)

	_, err := tm.CancelTask(context.Background(), "t1")
	var notCancelable a2a.TaskNotCancelableError
	if !errors.As(err, &notCancelable) {
		t.Fatalf("expected TaskNotCancelableError, got %v", err)
	}
	if notCancelable.State != a2a.TaskStateCompleted {
		t.Errorf("expected conflicting state %s, got %s", a2a.TaskStateCompleted, notCancelable.State)
	}
}

func TestCancelTask_LastWriteWins(t *testing.T) {
	tm := newTestManager()
	started := make(chan struct{})
	release := make(chan struct{})
	tm.SetHandler(func(ctx context.Context, message a2a.Message) (*a2a.Message, []a2a.Artifact, error) {
		close(started)
		<-release
		reply := a2a.NewAgentTextMessage("late completion")
		return &reply, nil, nil
	})

	if _, err := tm.CreateTask(context.Background(), sendParams("t1", "hi")); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	<-started

	if _, err := tm.CancelTask(context.Background(), "t1"); err != nil {
		t.Fatalf("CancelTask failed: %v", err)
	}

	// The in-flight handler is not interrupted; its completion lands
	// after the cancel and overwrites it.
	close(release)
	task := waitForState(t, tm, "t1", a2a.TaskStateCompleted)
	if len(task.History) != 2 {
		t.Errorf("expected late completion to apply its reply, got %d history entries", len(task.History))
	}
}

func TestDuplicateID_Reinitializes(t *testing.T) {
	tm := newTestManager()
	tm.SetHandler(echoHandler)

	if _, err := tm.CreateTask(context.Background(), sendParams("t1", "first")); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	waitForState(t, tm, "t1", a2a.TaskStateCompleted)
	if _, err := tm.CreateTask(context.Background(), sendParams("t2", "other")); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	created, err := tm.CreateTask(context.Background(), sendParams("t1", "second"))
	if err != nil {
		t.Fatalf("CreateTask with duplicate ID failed: %v", err)
	}
	if created.Status.State != a2a.TaskStateSubmitted {
		t.Errorf("expected re-initialized task in submitted state, got %s", created.Status.State)
	}
	if len(created.History) != 1 {
		t.Errorf("expected history reset on re-initialization, got %d entries", len(created.History))
	}

	// Re-initialization keeps the original insertion-order position.
	list, err := tm.ListTasks(context.Background(), a2a.TaskListParams{})
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(list.Tasks) != 2 || list.Tasks[0].ID != "t1" || list.Tasks[1].ID != "t2" {
		t.Errorf("unexpected insertion order: %v", taskIDs(list.Tasks))
	}
}

func taskIDs(tasks []*a2a.Task) []string {
	ids := make([]string, len(tasks))
	for i, task := range tasks {
		ids[i] = task.ID
	}
	return ids
}

func TestListTasks_Pagination(t *testing.T) {
	tm := newTestManager() // no handler: insertion order is stable

	for i := 1; i <= 5; i++ {
		if _, err := tm.CreateTask(context.Background(), sendParams(fmt.Sprintf("t%d", i), "hi")); err != nil {
			t.Fatalf("CreateTask failed: %v", err)
		}
	}

	first, err := tm.ListTasks(context.Background(), a2a.TaskListParams{Limit: 2})
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if got := taskIDs(first.Tasks); len(got) != 2 || got[0] != "t1" || got[1] != "t2" {
		t.Errorf("unexpected first page: %v", got)
	}
	if !first.HasMore || first.NextCursor != "t2" {
		t.Errorf("expected hasMore with cursor t2, got hasMore=%t cursor=%s", first.HasMore, first.NextCursor)
	}

	rest, err := tm.ListTasks(context.Background(), a2a.TaskListParams{Cursor: first.NextCursor})
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if got := taskIDs(rest.Tasks); len(got) != 3 || got[0] != "t3" || got[2] != "t5" {
		t.Errorf("unexpected final page: %v", got)
	}
	if rest.HasMore || rest.NextCursor != "" {
		t.Errorf("expected final page, got hasMore=%t cursor=%s", rest.HasMore, rest.NextCursor)
	}
}

func TestListTasks_UnknownCursorStartsFromBeginning(t *testing.T) {
	tm := newTestManager()
	for i := 1; i <= 3; i++ {
		if _, err := tm.CreateTask(context.Background(), sendParams(fmt.Sprintf("t%d", i), "hi")); err != nil {
			t.Fatalf("CreateTask failed: %v", err)
		}
	}

	list, err := tm.ListTasks(context.Background(), a2a.TaskListParams{Cursor: "no-such-task"})
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if got := taskIDs(list.Tasks); len(got) != 3 || got[0] != "t1" {
		t.Errorf("expected full list from the beginning, got %v", got)
	}
}

func TestListTasks_StateFilterKeepsCursorPositions(t *testing.T) {
	tm := newTestManager()
	for i := 1; i <= 4; i++ {
		if _, err := tm.CreateTask(context.Background(), sendParams(fmt.Sprintf("t%d", i), "hi")); err != nil {
			t.Fatalf("CreateTask failed: %v", err)
		}
	}
	for _, id := range []string{"t2", "t4"} {
		if _, err := tm.CancelTask(context.Background(), id); err != nil {
			t.Fatalf("CancelTask failed: %v", err)
		}
	}

	first, err := tm.ListTasks(context.Background(), a2a.TaskListParams{Limit: 1, State: a2a.TaskStateCanceled})
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if got := taskIDs(first.Tasks); len(got) != 1 || got[0] != "t2" {
		t.Errorf("unexpected filtered page: %v", got)
	}
	if !first.HasMore || first.NextCursor != "t2" {
		t.Errorf("expected hasMore with cursor t2, got hasMore=%t cursor=%s", first.HasMore, first.NextCursor)
	}

	// The cursor addresses the full insertion order: resuming after t2
	// walks t3 (filtered out) and then t4.
	second, err := tm.ListTasks(context.Background(), a2a.TaskListParams{Cursor: "t2", State: a2a.TaskStateCanceled})
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if got := taskIDs(second.Tasks); len(got) != 1 || got[0] != "t4" {
		t.Errorf("unexpected filtered page: %v", got)
	}
	if second.HasMore {
		t.Error("expected final filtered page")
	}
}

func TestListTasks_NegativeLimit(t *testing.T) {
	tm := newTestManager()
	if _, err := tm.ListTasks(context.Background(), a2a.TaskListParams{Limit: -1}); err == nil {
		t.Fatal("expected error for negative limit")
	}
}

func TestCleanup(t *testing.T) {
	tm := newTestManager()
	tm.SetHandler(echoHandler)

	for i := 1; i <= 3; i++ {
		if _, err := tm.CreateTask(context.Background(), sendParams(fmt.Sprintf("t%d", i), "hi")); err != nil {
			t.Fatalf("CreateTask failed: %v", err)
		}
		waitForState(t, tm, fmt.Sprintf("t%d", i), a2a.TaskStateCompleted)
	}

	if removed := tm.Cleanup(context.Background(), 24*time.Hour); removed != 0 {
		t.Errorf("expected cleanup with a large max age to remove nothing, removed %d", removed)
	}

	if removed := tm.Cleanup(context.Background(), 0); removed != 3 {
		t.Errorf("expected cleanup(0) to remove all 3 tasks, removed %d", removed)
	}
	if tasks := tm.GetAllTasks(context.Background()); len(tasks) != 0 {
		t.Errorf("expected empty store after cleanup, got %d tasks", len(tasks))
	}
	list, err := tm.ListTasks(context.Background(), a2a.TaskListParams{})
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(list.Tasks) != 0 {
		t.Errorf("expected empty insertion order after cleanup, got %v", taskIDs(list.Tasks))
	}
}

func TestGetAllTasks(t *testing.T) {
	tm := newTestManager()
	for i := 1; i <= 3; i++ {
		if _, err := tm.CreateTask(context.Background(), sendParams(fmt.Sprintf("t%d", i), "hi")); err != nil {
			t.Fatalf("CreateTask failed: %v", err)
		}
	}

	tasks := tm.GetAllTasks(context.Background())
	if len(tasks) != 3 {
		t.Errorf("expected 3 tasks, got %d", len(tasks))
	}
}

func TestSubscribe_EventOrder(t *testing.T) {
	tm := newTestManager()
	tm.SetHandler(func(ctx context.Context, message a2a.Message) (*a2a.Message, []a2a.Artifact, error) {
		reply := a2a.NewAgentTextMessage("done")
		return &reply, []a2a.Artifact{{Parts: []a2a.Part{a2a.NewTextPart("out")}}}, nil
	})

	events := tm.Subscribe("t1")
	defer tm.Unsubscribe("t1", events)

	if _, err := tm.CreateTask(context.Background(), sendParams("t1", "hi")); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	var got []a2a.TaskEvent
	timeout := time.After(2 * time.Second)
	for {
		select {
		case event := <-events:
			got = append(got, event)
			if event.Final() {
				goto done
			}
		case <-timeout:
			t.Fatalf("timed out waiting for terminal event, got %d events", len(got))
		}
	}
done:

	if len(got) != 4 {
		t.Fatalf("expected 4 events, got %d", len(got))
	}
	if got[0].Type != a2a.TaskEventStatus || got[0].Task.Status.State != a2a.TaskStateWorking {
		t.Errorf("expected working status first, got %+v", got[0])
	}
	if got[1].Type != a2a.TaskEventMessage || got[1].Message == nil {
		t.Errorf("expected message event second, got %+v", got[1])
	}
	if got[2].Type != a2a.TaskEventArtifact || got[2].Artifact == nil {
		t.Errorf("expected artifact event third, got %+v", got[2])
	}
	if got[3].Type != a2a.TaskEventStatus || got[3].Task.Status.State != a2a.TaskStateCompleted {
		t.Errorf("expected completed status last, got %+v", got[3])
	}
}

func TestSubscribe_FiltersOtherTasks(t *testing.T) {
	tm := newTestManager()
	tm.SetHandler(echoHandler)

	events := tm.Subscribe("t1")
	defer tm.Unsubscribe("t1", events)

	if _, err := tm.CreateTask(context.Background(), sendParams("t2", "hi")); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	waitForState(t, tm, "t2", a2a.TaskStateCompleted)

	select {
	case event := <-events:
		t.Errorf("received event for unsubscribed task: %+v", event)
	default:
	}
}

func TestUnsubscribe_Idempotent(t *testing.T) {
	tm := newTestManager()

	events := tm.Subscribe("t1")
	tm.Unsubscribe("t1", events)
	tm.Unsubscribe("t1", events) // second removal must be a no-op

	if _, ok := <-events; ok {
		t.Error("expected subscriber channel to be closed")
	}
}
