package worker

import (
	"github.com/presic/chunker/tasks"
	"fmt"
)

type redisTransactions interface {
	getDocTask(redisKey string) (*tasks.DocumentTask, error)
	onTaskStarted(task *Task) error
	onTaskCancelled(task *Task, errorMessages ...string) error
	onTaskExceededRetries(task *Task, maxRetries int) error
	onTaskFailedWithError(task *Task, err error) error
	onTaskComplete(task *Task) error
	close()
}

type redisClientWrapper struct {
	tasksClient *tasks.Client
}

func (wrapper *redisClientWrapper) close() {
	wrapper.tasksClient.Close()
}

func (wrapper *redisClientWrapper) onTaskStarted(task *Task) error {
	return wrapper.tasksClient.Documents.Update(task.redisKey, func(docTask *tasks.DocumentTask) {
		docTask.TaskStatuses.Chunker.Status = tasks.TaskStatusStarted
		docTask.TaskStatuses.Chunker.Attempts += 1
		docTask.TaskStatuses.Chunker.StartedAt = getFormattedNow()
		docTask.TaskStatuses.Chunker.CompletedAt = nil
	})
}

func (wrapper *redisClientWrapper) onTaskCancelled(task *Task, errorMessages ...string) error {
	return wrapper.tasksClient.Documents.Update(task.redisKey, func(docTask *tasks.DocumentTask) {
		docTask.TaskStatuses.Chunker.Status = tasks.TaskStatusCanceled
		docTask.TaskStatuses.Chunker.StartedAt = getFormattedNow()
		docTask.TaskStatuses.Chunker.CompletedAt = getFormattedNow()
		docTask.TaskStatuses.Chunker.Attempts += 1
		docTask.TaskStatuses.Chunker.ErrorMessages = append(
			docTask.TaskStatuses.Chunker.ErrorMessages,
			errorMessages...,
		)
	})
}

func (wrapper *redisClientWrapper) onTaskExceededRetries(task *Task, maxRetries int) error {
	return wrapper.tasksClient.Documents.Update(task.redisKey, func(docTask *tasks.DocumentTask) {
		docTask.TaskStatuses.Chunker.Status = tasks.TaskStatusCompletedFailure
		docTask.TaskStatuses.Chunker.StartedAt = getFormattedNow()
		docTask.TaskStatuses.Chunker.CompletedAt = getFormattedNow()
		docTask.TaskStatuses.Chunker.Attempts += 1
		docTask.TaskStatuses.Chunker.ErrorMessages = append(
			docTask.TaskStatuses.Chunker.ErrorMessages,
			fmt.Sprintf(
				"Task has exceeded retries. (Attempts: %d, max retries: %d )",
				docTask.TaskStatuses.Chunker.Attempts,
				maxRetries,
			),
		)
	})
}

func (wrapper *redisClientWrapper) onTaskFailedWithError(task *Task, err error) error {
	return wrapper.tasksClient.Documents.Update(task.redisKey, func(docTask *tasks.DocumentTask) {
		docTask.TaskStatuses.Chunker.Status = tasks.TaskStatusFailed
		docTask.TaskStatuses.Chunker.CompletedAt = getFormattedNow()
		docTask.TaskStatuses.Chunker.ErrorMessages = append(docTask.TaskStatuses.Chunker.ErrorMessages, err.Error())
	})
}

func (wrapper *redisClientWrapper) onTaskComplete(task *Task) error {
	return wrapper.tasksClient.Documents.Update(task.redisKey, func(docTask *tasks.DocumentTask) {
		if !docTask.TaskStatuses.Chunker.Status.Complete() {
			docTask.TaskStatuses.Chunker.Status = tasks.TaskStatusCompletedSuccess
		}
		docTask.TaskStatuses.Chunker.CompletedAt = getFormattedNow()
		docTask.TaskStatuses.Chunker.ResultsFileKey = getResultsFileKey(task)
	})
}

func (wrapper *redisClientWrapper) getDocTask(redisKey string) (*tasks.DocumentTask, error) {
	return wrapper.tasksClient.Documents.Get(redisKey)
}
