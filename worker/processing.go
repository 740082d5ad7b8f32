package worker

import (
	"github.com/presic/chunker/hmm"
	"github.com/presic/chunker/tasks"
	"encoding/json"
	"fmt"
	"github.com/rs/zerolog"
	"github.com/streadway/amqp"
)

type Message struct {
	WorkType string `json:"work_type"`
	RedisKey string `json:"redis_key"`
	Sender   string `json:"sender"`
	Version  string `json:"version"`
}

type Task struct {
	delivery *amqp.Delivery
	docTask  *tasks.DocumentTask
	message  *Message
	redisKey string
	log      *zerolog.Logger
}

func (worker *Worker) processMessage(delivery *amqp.Delivery) {
	task, err := worker.createTask(delivery)
	rejectLogger := worker.log.With().Str("message_id", delivery.MessageId).Logger()
	if err != nil {
		worker.log.Err(err).
			Str("message_id", delivery.MessageId).
			Str("tid", string(delivery.Body)).
			Msg("Failed to create task for delivery")
		worker.rmq.rejectDelivery(delivery, &rejectLogger)
		return
	}
	if err = worker.processTask(task); err != nil {
		worker.rmq.rejectDelivery(delivery, &rejectLogger)
		return
	}
	if err = worker.rmq.pingSequencer(task, *task.message); err != nil {
		task.log.Err(err).Msg("Got error while sending message to sequencer queue")
		worker.rmq.rejectDelivery(delivery, &rejectLogger)
		return
	}
	if err = worker.rmq.acknowledgeDelivery(delivery); err != nil {
		task.log.Err(err).Msg("Failed to acknowledge delivery")
	}
	task.log.Info().Msg("Finished processing RMQ message")
}

func (worker *Worker) createTask(delivery *amqp.Delivery) (*Task, error) {
	var message Message
	err := json.Unmarshal(delivery.Body, &message)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal message, got error %w", err)
	}
	docTask, err := worker.redis.getDocTask(message.RedisKey)
	if err != nil {
		return nil, fmt.Errorf("failed to query document task for message, got error %w", err)
	}
	taskLogger := worker.log.With().Str("tid", message.RedisKey).Logger()
	task := Task{
		delivery: delivery,
		docTask:  docTask,
		redisKey: message.RedisKey,
		message:  &message,
		log:      &taskLogger,
	}
	return &task, nil
}

func (worker *Worker) processTask(task *Task) error {
	shouldPerform, err := worker.shouldPerformTask(task)
	if err != nil {
		task.log.Err(err).
			Msg("Got error while trying to decide whether to run task")
		return err
	}
	if !shouldPerform {
		return nil
	}
	if err = worker.redis.onTaskStarted(task); err != nil {
		task.log.Err(err).Msg("Failed to update task info")
		return fmt.Errorf("failed to update TaskInfo: %w", err)
	}
	if err = worker.runTagger(task); err != nil {
		task.log.Err(err).Msg("Got error while tagging document")
		if err = worker.redis.onTaskFailedWithError(task, err); err != nil {
			return err
		}
		return nil
	}
	task.log.Info().Msg("Saved results, marking task as complete")
	if err = worker.redis.onTaskComplete(task); err != nil {
		task.log.Err(err).Msg("Got error while trying to mark task as complete")
		return err
	}
	return nil
}

func (worker *Worker) runTagger(task *Task) (err error) {
	defer recoverWithError(&err)
	task.log.Info().Msgf("Processing message from RMQ, attempt # %d", task.docTask.TaskStatuses.Chunker.Attempts)
	mode, err := hmm.ParseMode(task.docTask.Mode)
	if err != nil {
		return err
	}
	data, err := worker.s3.getDocumentText(task)
	if err != nil {
		task.log.Err(err).Caller().Msg("Could not fetch text data from s3")
		return fmt.Errorf("failed fetch data from s3: %w", err)
	}
	sentences, err := worker.tagger.TagText(string(data), mode)
	if err != nil {
		return err
	}
	result, err := json.Marshal(sentences)
	if err != nil {
		return err
	}
	task.log.Info().Msg("Finished tagging, saving results to s3")
	if err = worker.s3.saveResultsFile(task, string(result)); err != nil {
		task.log.Err(err).Msg("Got error while trying to save results")
		return err
	}
	return nil
}

func (worker *Worker) shouldPerformTask(task *Task) (bool, error) {
	taskInfo := task.docTask.TaskStatuses.Chunker
	taskLogger := task.log

	if taskInfo.Status.Complete() {
		taskLogger.Info().Msg("Task is already done. (might indicate issue acking message with RMQ). Sending back to Sequencer.")
		return false, nil
	}
	if task.docTask.UserCanceled {
		taskLogger.Info().Msg("Document was canceled, no need to perform this task. Sending back to Sequencer.")
		err := worker.redis.onTaskCancelled(task)
		return false, err
	}
	if taskInfo.Attempts >= worker.config.TaskMaxRetries {
		taskLogger.Info().Msg("Tagging task has exceeded retries. Sending back to Sequencer.")
		err := worker.redis.onTaskExceededRetries(task, worker.config.TaskMaxRetries)
		return false, err
	}
	return true, nil
}
