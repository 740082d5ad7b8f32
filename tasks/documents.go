package tasks

import (
	"github.com/presic/chunker/redis"
)

const DocumentsDB redis.DB = 0

type TaskStatus string

const (
	TaskStatusProcessing       TaskStatus = "processing"
	TaskStatusSubmitted        TaskStatus = "submitted"
	TaskStatusStarted          TaskStatus = "started"
	TaskStatusFailed           TaskStatus = "failed"
	TaskStatusCompletedSuccess TaskStatus = "completed - success"
	TaskStatusCompletedFailure TaskStatus = "completed - failure"
	TaskStatusCanceled         TaskStatus = "canceled"
)

func (s TaskStatus) Complete() bool {
	return s == TaskStatusCompletedSuccess || s == TaskStatusCompletedFailure || s == TaskStatusCanceled
}

func (s TaskStatus) Submitted() bool {
	return s == TaskStatusSubmitted || s == TaskStatusStarted || s == TaskStatusProcessing
}

// DocumentTask tracks a single document through the tagging worker. The
// document text lives in object storage under TextFileKey; Mode selects
// part-of-speech or chunk output.
type DocumentTask struct {
	DocID        string               `json:"document_id"`
	TextFileKey  string               `json:"text_file_key"`
	Mode         string               `json:"mode"`
	UserCanceled bool                 `json:"user_canceled"`
	TaskStatuses DocumentTaskStatuses `json:"task_statuses"`
}

type DocumentTaskStatuses struct {
	Chunker DocumentTaskInfo `json:"chunker"`
}

type DocumentTaskInfo struct {
	ResultsFileKey string     `json:"results_file_key"`
	StartedAt      *string    `json:"started_at"`
	CompletedAt    *string    `json:"completed_at"`
	Attempts       int        `json:"attempts"`
	Status         TaskStatus `json:"status"`
	ErrorMessages  []string   `json:"error_messages"`
}

type DocumentTasks struct {
	client redis.Client
}

func (tasks DocumentTasks) Get(redisKey string) (*DocumentTask, error) {
	var task DocumentTask
	if err := tasks.client.GetDocument(redisKey, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (tasks DocumentTasks) Update(redisKey string, updateFunc func(task *DocumentTask)) error {
	var task DocumentTask
	return tasks.client.UpdateDocument(redisKey, &task, func() {
		updateFunc(&task)
	})
}
