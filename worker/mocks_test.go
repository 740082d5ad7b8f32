package worker

import (
	"github.com/presic/chunker/chunker"
	"github.com/presic/chunker/hmm"
	"github.com/presic/chunker/tasks"
	"errors"
	"github.com/rs/zerolog"
	"github.com/streadway/amqp"
)

type failingMethod struct {
	fail bool
}

type withValue struct {
	fail          bool
	returnedValue interface{}
}

type taggerMock struct {
	config taggerMockConfig
	calls  taggerCall
}

type taggerMockConfig struct {
	fail bool
}

type taggerCall struct {
	tagText bool
}

func (mock *taggerMock) TagText(text string, mode hmm.Mode) ([][]chunker.TaggedToken, error) {
	mock.calls.tagText = true
	if mock.config.fail {
		return nil, errors.New("mock: tagging failed")
	}
	return [][]chunker.TaggedToken{{{Token: "some", Tag: "DET"}}}, nil
}

type redisMock struct {
	config redisMockConfig
	calls  redisMockCalls
}

type redisMockConfig struct {
	getDocTask            withValue
	onTaskCancelled       failingMethod
	onTaskStarted         failingMethod
	onTaskExceededRetries failingMethod
	onTaskFailedWithError failingMethod
	onTaskComplete        failingMethod
}

type redisMockCalls struct {
	getDocTask            bool
	onTaskCancelled       bool
	onTaskStarted         bool
	onTaskExceededRetries bool
	onTaskFailedWithError bool
	onTaskComplete        bool
}

type rmqMock struct {
	config rmqMockConfig
	calls  rmqMockCalls
}

type rmqMockConfig struct {
	pingSequencer       failingMethod
	acknowledgeDelivery failingMethod
}

type rmqMockCalls struct {
	pingSequencer       bool
	acknowledgeDelivery bool
	rejectDelivery      bool
}

type s3Mock struct {
	config s3MockConfig
	calls  s3MockCalls
}

type s3MockConfig struct {
	getDocumentText withValue
	saveResultsFile failingMethod
}

type s3MockCalls struct {
	getDocumentText bool
	saveResultsFile bool
}

func (mock *s3Mock) close() {}

func (mock *rmqMock) close() {}

func (mock *redisMock) close() {}

func (mock *redisMock) getDocTask(redisKey string) (*tasks.DocumentTask, error) {
	mock.calls.getDocTask = true
	if mock.config.getDocTask.fail {
		return nil, errors.New("failed to get document task")
	}
	switch value := mock.config.getDocTask.returnedValue.(type) {
	case tasks.DocumentTask:
		return &value, nil
	default:
		return &tasks.DocumentTask{Mode: "pos"}, nil
	}
}

func (mock *redisMock) onTaskStarted(task *Task) error {
	mock.calls.onTaskStarted = true
	if mock.config.onTaskStarted.fail {
		return errors.New("failed to update document task on start")
	}
	return nil
}

func (mock *redisMock) onTaskCancelled(task *Task, errorMessages ...string) error {
	mock.calls.onTaskCancelled = true
	if mock.config.onTaskCancelled.fail {
		return errors.New("failed to update document task on cancel")
	}
	return nil
}

func (mock *redisMock) onTaskExceededRetries(task *Task, maxRetries int) error {
	mock.calls.onTaskExceededRetries = true
	if mock.config.onTaskExceededRetries.fail {
		return errors.New("failed to update document task on exceeded retries")
	}
	return nil
}

func (mock *redisMock) onTaskFailedWithError(task *Task, err error) error {
	mock.calls.onTaskFailedWithError = true
	if mock.config.onTaskFailedWithError.fail {
		return errors.New("failed to update document task on fail with error")
	}
	return nil
}

func (mock *redisMock) onTaskComplete(task *Task) error {
	mock.calls.onTaskComplete = true
	if mock.config.onTaskComplete.fail {
		return errors.New("failed to update document task on complete")
	}
	return nil
}

func (mock *rmqMock) rejectDelivery(delivery *amqp.Delivery, log *zerolog.Logger) {
	mock.calls.rejectDelivery = true
}

func (mock *rmqMock) getDeliveriesCh() <-chan amqp.Delivery {
	return nil
}

func (mock *rmqMock) getReqChanErrorsCh() <-chan *amqp.Error {
	return nil
}

func (mock *rmqMock) getRespChanErrorsCh() <-chan *amqp.Error {
	return nil
}

func (mock *rmqMock) pingSequencer(task *Task, message Message) error {
	mock.calls.pingSequencer = true
	if mock.config.pingSequencer.fail {
		return errors.New("failed to ping sequencer")
	}
	return nil
}

func (mock *rmqMock) acknowledgeDelivery(delivery *amqp.Delivery) error {
	mock.calls.acknowledgeDelivery = true
	if mock.config.acknowledgeDelivery.fail {
		return errors.New("failed to acknowledge delivery")
	}
	return nil
}

func (mock *s3Mock) getDocumentText(task *Task) ([]byte, error) {
	mock.calls.getDocumentText = true
	if mock.config.getDocumentText.fail {
		return nil, errors.New("mock: failed to load from s3")
	}
	switch value := mock.config.getDocumentText.returnedValue.(type) {
	case []byte:
		return value, nil
	default:
		return []byte("some input"), nil
	}
}

func (mock *s3Mock) saveResultsFile(task *Task, result string) error {
	mock.calls.saveResultsFile = true
	if mock.config.saveResultsFile.fail {
		return errors.New("failed to upload results")
	}
	return nil
}
