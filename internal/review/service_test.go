package review

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/archive-enricher/internal/store"
	"github.com/jonathan/archive-enricher/internal/types"
)

type fakeTaskStore struct {
	tasks    map[uuid.UUID]*types.ReviewTask
	jobs     map[uuid.UUID]*types.EnrichmentJob
	conflict bool
}

func (f *fakeTaskStore) GetReviewTask(_ context.Context, id uuid.UUID) (*types.ReviewTask, error) {
	task, ok := f.tasks[id]
	if !ok {
		return nil, nil
	}
	copied := *task
	return &copied, nil
}

func (f *fakeTaskStore) ListReviewTasks(_ context.Context, filters store.ReviewTaskFilters) ([]types.ReviewTask, error) {
	var out []types.ReviewTask
	for _, task := range f.tasks {
		if filters.Status == "" || task.Status == filters.Status {
			out = append(out, *task)
		}
	}
	return out, nil
}

func (f *fakeTaskStore) UpdateReviewTaskFrom(_ context.Context, task *types.ReviewTask, from types.ReviewTaskStatus) (bool, error) {
	if f.conflict {
		return false, nil
	}
	current, ok := f.tasks[task.ID]
	if !ok || current.Status != from {
		return false, nil
	}
	copied := *task
	f.tasks[task.ID] = &copied
	return true, nil
}

func (f *fakeTaskStore) GetJob(_ context.Context, id uuid.UUID) (*types.EnrichmentJob, error) {
	return f.jobs[id], nil
}

type fakeDocStore struct {
	docs     map[string]*types.EnrichedDocument
	statuses map[string]types.ReviewStatus
}

func (f *fakeDocStore) GetDocument(_ context.Context, _ uuid.UUID, documentID string) (*types.EnrichedDocument, error) {
	return f.docs[documentID], nil
}

func (f *fakeDocStore) SetReviewStatus(_ context.Context, _ uuid.UUID, documentID string, status types.ReviewStatus, _ map[string]any) error {
	if f.statuses == nil {
		f.statuses = map[string]types.ReviewStatus{}
	}
	f.statuses[documentID] = status
	return nil
}

type fakeRequeuer struct {
	enqueued []*types.TaskMessage
}

func (f *fakeRequeuer) Enqueue(_ context.Context, msg *types.TaskMessage) (string, error) {
	f.enqueued = append(f.enqueued, msg)
	return "1693500000000-0", nil
}

func fixtures() (*fakeTaskStore, *fakeDocStore, *fakeRequeuer, *types.ReviewTask) {
	jobID := uuid.New()
	task := &types.ReviewTask{
		ID:         uuid.New(),
		DocumentID: "doc-0001",
		JobID:      jobID,
		Reason:     types.ReasonBelowThreshold,
		Status:     types.ReviewTaskPending,
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}
	tasks := &fakeTaskStore{
		tasks: map[uuid.UUID]*types.ReviewTask{task.ID: task},
		jobs: map[uuid.UUID]*types.EnrichmentJob{
			jobID: {ID: jobID, SourceBatchID: "batch-2024-001"},
		},
	}
	docs := &fakeDocStore{
		docs: map[string]*types.EnrichedDocument{
			"doc-0001": {
				DocumentID:   "doc-0001",
				JobID:        jobID,
				CollectionID: "estate-papers",
				RawInput:     "My dearest Margaret...",
				ReviewStatus: types.ReviewStatusPending,
			},
		},
	}
	return tasks, docs, &fakeRequeuer{}, task
}

func TestAssign_PendingTaskMovesToInProgress(t *testing.T) {
	tasks, docs, queue, task := fixtures()
	svc := NewService(tasks, docs, queue, nil)

	updated, err := svc.Assign(context.Background(), task.ID, "reviewer@archive.org")
	require.NoError(t, err)

	assert.Equal(t, types.ReviewTaskInProgress, updated.Status)
	assert.Equal(t, "reviewer@archive.org", updated.Assignee)
	assert.Equal(t, types.ReviewTaskInProgress, tasks.tasks[task.ID].Status)
}

func TestAssign_ResolvedTaskCannotBeClaimed(t *testing.T) {
	tasks, docs, queue, task := fixtures()
	tasks.tasks[task.ID].Status = types.ReviewTaskApproved
	svc := NewService(tasks, docs, queue, nil)

	_, err := svc.Assign(context.Background(), task.ID, "reviewer@archive.org")

	var transition *ErrInvalidTransition
	require.ErrorAs(t, err, &transition)
	assert.Equal(t, types.ReviewTaskApproved, transition.From)
}

func TestAssign_UnknownTask(t *testing.T) {
	tasks, docs, queue, _ := fixtures()
	svc := NewService(tasks, docs, queue, nil)

	_, err := svc.Assign(context.Background(), uuid.New(), "reviewer@archive.org")

	var notFound *ErrTaskNotFound
	assert.ErrorAs(t, err, &notFound)
}

func TestApprove_MarksDocumentApprovedWithCorrections(t *testing.T) {
	tasks, docs, queue, task := fixtures()
	svc := NewService(tasks, docs, queue, nil)

	corrections := map[string]any{"document.date": "March 4, 1911"}
	updated, err := svc.Approve(context.Background(), task.ID, "reviewer@archive.org", "fixed the date", corrections)
	require.NoError(t, err)

	assert.Equal(t, types.ReviewTaskApproved, updated.Status)
	assert.Equal(t, "fixed the date", updated.Notes)
	assert.Equal(t, corrections, updated.Corrections)
	assert.Equal(t, types.ReviewStatusApproved, docs.statuses["doc-0001"])
	assert.Empty(t, queue.enqueued)
}

func TestReject_RequeuesOriginalPayload(t *testing.T) {
	tasks, docs, queue, task := fixtures()
	svc := NewService(tasks, docs, queue, nil)

	updated, err := svc.Reject(context.Background(), task.ID, "reviewer@archive.org", "entities are garbage")
	require.NoError(t, err)

	assert.Equal(t, types.ReviewTaskRejected, updated.Status)
	require.Len(t, queue.enqueued, 1)
	msg := queue.enqueued[0]
	assert.Equal(t, "batch-2024-001", msg.OCRJobID, "the rebuilt message carries the source batch id")
	assert.Equal(t, "doc-0001", msg.DocumentID)
	assert.Equal(t, "My dearest Margaret...", msg.OCRPayload)
	assert.Equal(t, "estate-papers", msg.CollectionID)
}

func TestReject_MissingDocumentFails(t *testing.T) {
	tasks, docs, queue, task := fixtures()
	delete(docs.docs, "doc-0001")
	svc := NewService(tasks, docs, queue, nil)

	_, err := svc.Reject(context.Background(), task.ID, "reviewer@archive.org", "")
	assert.Error(t, err)
	assert.Equal(t, types.ReviewTaskPending, tasks.tasks[task.ID].Status, "the task stays reviewable")
}

func TestApprove_ConcurrentResolutionConflicts(t *testing.T) {
	tasks, docs, queue, task := fixtures()
	tasks.conflict = true
	svc := NewService(tasks, docs, queue, nil)

	_, err := svc.Approve(context.Background(), task.ID, "reviewer@archive.org", "", nil)

	var conflict *ErrConflict
	assert.ErrorAs(t, err, &conflict)
	assert.Empty(t, docs.statuses, "the document is untouched on conflict")
}

func TestList_FiltersByStatus(t *testing.T) {
	tasks, docs, queue, task := fixtures()
	other := &types.ReviewTask{ID: uuid.New(), DocumentID: "doc-0002", JobID: task.JobID, Status: types.ReviewTaskApproved}
	tasks.tasks[other.ID] = other
	svc := NewService(tasks, docs, queue, nil)

	pending, err := svc.List(context.Background(), types.ReviewTaskPending, 50, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "doc-0001", pending[0].DocumentID)
}
