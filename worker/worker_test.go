package worker

import (
	"github.com/presic/chunker/logger"
	"github.com/presic/chunker/tasks"
	"github.com/streadway/amqp"
	"reflect"
	"testing"
)

type mockedClientsConfig struct {
	rmqMockConfig
	redisMockConfig
	s3MockConfig
	taggerMockConfig
}

type mockedClients struct {
	redis  *redisMock
	rmq    *rmqMock
	s3     *s3Mock
	tagger *taggerMock
}

type methodsCalls struct {
	redis  redisMockCalls
	rmq    rmqMockCalls
	s3     s3MockCalls
	tagger taggerCall
}

func testConfiguration(t *testing.T, config mockedClientsConfig, expectedCalls methodsCalls) {
	worker, mocks := configureWorker(config)
	worker.processMessage(&amqp.Delivery{
		Body: []byte("{}"),
	})
	calls := methodsCalls{
		redis:  mocks.redis.calls,
		rmq:    mocks.rmq.calls,
		s3:     mocks.s3.calls,
		tagger: mocks.tagger.calls,
	}
	if !reflect.DeepEqual(calls, expectedCalls) {
		t.Errorf("Got unexpected called methods set.\nExpected:\n%+v\nGot:\n%+v", expectedCalls, calls)
	}
}

func configureWorker(config mockedClientsConfig) (*Worker, *mockedClients) {
	redis := &redisMock{config: config.redisMockConfig}
	s3 := &s3Mock{config: config.s3MockConfig}
	rmq := &rmqMock{config: config.rmqMockConfig}
	tagger := &taggerMock{config: config.taggerMockConfig}

	workerLogger := logger.NewLogger("Test Worker")

	return &Worker{
			config: Config{3},
			redis:  redis,
			s3:     s3,
			rmq:    rmq,
			log:    &workerLogger,
			tagger: tagger,
		}, &mockedClients{
			redis:  redis,
			rmq:    rmq,
			s3:     s3,
			tagger: tagger,
		}
}

func TestWorker(t *testing.T) {
	t.Run("Successful", testSuccessfulTask)
	t.Run("Failed to get document task", testGetDocTaskFailed)
	t.Run("Already complete with success", testAlreadyCompletedSuccessfully)
	t.Run("Already complete with failure", testAlreadyCompletedWithFailure)
	t.Run("User cancelled", testUserCancelled)
	t.Run("Exceeded attempts", testExceededAttempts)
	t.Run("Unknown tagging mode", testUnknownMode)
	t.Run("Failed to update task in onTaskStarted", testFailedToUpdateOnTaskStarted)
	t.Run("Failed to load data from S3", testFailedToFetchFromS3)
	t.Run("Failed due to tagger error", testTaggerError)
	t.Run("Failed to update task in onTaskFailedWithError", testFailedToUpdateOnTaskFailedWithError)
	t.Run("Failed to update task in onTaskComplete", testFailedToUpdateOnTaskComplete)
	t.Run("Failed to save result to S3", testFailedToSaveToS3)
	t.Run("Failed to acknowledge delivery", testFailedAckDelivery)
	t.Run("Failed to ping sequencer", testFailedPingSequencer)
}

func testSuccessfulTask(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{},
		methodsCalls{
			redis: redisMockCalls{
				getDocTask: true, onTaskStarted: true, onTaskComplete: true,
			},
			rmq: rmqMockCalls{pingSequencer: true, acknowledgeDelivery: true},
			s3: s3MockCalls{
				getDocumentText: true,
				saveResultsFile: true,
			},
			tagger: taggerCall{true},
		},
	)
}

func testGetDocTaskFailed(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{
			redisMockConfig: redisMockConfig{getDocTask: withValue{fail: true}},
		},
		methodsCalls{
			redis: redisMockCalls{getDocTask: true},
			rmq:   rmqMockCalls{rejectDelivery: true},
		},
	)
}

func testAlreadyCompletedSuccessfully(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{
			redisMockConfig: redisMockConfig{
				getDocTask: withValue{
					returnedValue: tasks.DocumentTask{
						Mode:         "pos",
						TaskStatuses: tasks.DocumentTaskStatuses{Chunker: tasks.DocumentTaskInfo{Status: tasks.TaskStatusCompletedSuccess}},
					},
				},
			},
		},
		methodsCalls{
			redis: redisMockCalls{getDocTask: true},
			rmq:   rmqMockCalls{pingSequencer: true, acknowledgeDelivery: true},
		},
	)
}

func testAlreadyCompletedWithFailure(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{
			redisMockConfig: redisMockConfig{
				getDocTask: withValue{
					returnedValue: tasks.DocumentTask{
						Mode:         "pos",
						TaskStatuses: tasks.DocumentTaskStatuses{Chunker: tasks.DocumentTaskInfo{Status: tasks.TaskStatusCompletedFailure}},
					},
				},
			},
		},
		methodsCalls{
			redis: redisMockCalls{getDocTask: true},
			rmq:   rmqMockCalls{pingSequencer: true, acknowledgeDelivery: true},
		},
	)
}

func testUserCancelled(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{
			redisMockConfig: redisMockConfig{
				getDocTask: withValue{
					returnedValue: tasks.DocumentTask{Mode: "pos", UserCanceled: true},
				},
			},
		},
		methodsCalls{
			redis: redisMockCalls{getDocTask: true, onTaskCancelled: true},
			rmq:   rmqMockCalls{pingSequencer: true, acknowledgeDelivery: true},
		},
	)
}

func testExceededAttempts(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{
			redisMockConfig: redisMockConfig{
				getDocTask: withValue{
					returnedValue: tasks.DocumentTask{
						Mode:         "pos",
						TaskStatuses: tasks.DocumentTaskStatuses{Chunker: tasks.DocumentTaskInfo{Attempts: 3}},
					},
				},
			},
		},
		methodsCalls{
			redis: redisMockCalls{getDocTask: true, onTaskExceededRetries: true},
			rmq:   rmqMockCalls{pingSequencer: true, acknowledgeDelivery: true},
		},
	)
}

func testUnknownMode(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{
			redisMockConfig: redisMockConfig{
				getDocTask: withValue{
					returnedValue: tasks.DocumentTask{Mode: "lemma"},
				},
			},
		},
		methodsCalls{
			redis: redisMockCalls{
				getDocTask: true, onTaskStarted: true, onTaskFailedWithError: true,
			},
			rmq: rmqMockCalls{pingSequencer: true, acknowledgeDelivery: true},
		},
	)
}

func testFailedToUpdateOnTaskStarted(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{
			redisMockConfig: redisMockConfig{onTaskStarted: failingMethod{fail: true}},
		},
		methodsCalls{
			redis: redisMockCalls{
				getDocTask: true, onTaskStarted: true,
			},
			rmq: rmqMockCalls{rejectDelivery: true},
		},
	)
}

func testFailedToFetchFromS3(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{
			s3MockConfig: s3MockConfig{getDocumentText: withValue{fail: true}},
		},
		methodsCalls{
			redis: redisMockCalls{
				getDocTask: true, onTaskStarted: true, onTaskFailedWithError: true,
			},
			rmq: rmqMockCalls{pingSequencer: true, acknowledgeDelivery: true},
			s3: s3MockCalls{
				getDocumentText: true,
			},
		},
	)
}

func testTaggerError(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{
			taggerMockConfig: taggerMockConfig{fail: true},
		},
		methodsCalls{
			redis: redisMockCalls{
				getDocTask: true, onTaskStarted: true, onTaskFailedWithError: true,
			},
			rmq: rmqMockCalls{pingSequencer: true, acknowledgeDelivery: true},
			s3: s3MockCalls{
				getDocumentText: true,
			},
			tagger: taggerCall{true},
		},
	)
}

func testFailedToUpdateOnTaskFailedWithError(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{
			taggerMockConfig: taggerMockConfig{fail: true},
			redisMockConfig:  redisMockConfig{onTaskFailedWithError: failingMethod{fail: true}},
		},
		methodsCalls{
			redis: redisMockCalls{
				getDocTask: true, onTaskStarted: true, onTaskFailedWithError: true,
			},
			rmq: rmqMockCalls{rejectDelivery: true},
			s3: s3MockCalls{
				getDocumentText: true,
			},
			tagger: taggerCall{true},
		},
	)
}

func testFailedToUpdateOnTaskComplete(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{
			redisMockConfig: redisMockConfig{onTaskComplete: failingMethod{fail: true}},
		},
		methodsCalls{
			redis: redisMockCalls{
				getDocTask: true, onTaskStarted: true, onTaskComplete: true,
			},
			rmq: rmqMockCalls{rejectDelivery: true},
			s3: s3MockCalls{
				getDocumentText: true,
				saveResultsFile: true,
			},
			tagger: taggerCall{true},
		},
	)
}

func testFailedToSaveToS3(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{
			s3MockConfig: s3MockConfig{saveResultsFile: failingMethod{fail: true}},
		},
		methodsCalls{
			redis: redisMockCalls{
				getDocTask: true, onTaskStarted: true, onTaskFailedWithError: true,
			},
			rmq: rmqMockCalls{pingSequencer: true, acknowledgeDelivery: true},
			s3: s3MockCalls{
				getDocumentText: true,
				saveResultsFile: true,
			},
			tagger: taggerCall{true},
		},
	)
}

func testFailedAckDelivery(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{
			rmqMockConfig: rmqMockConfig{acknowledgeDelivery: failingMethod{fail: true}},
		},
		methodsCalls{
			redis: redisMockCalls{
				getDocTask: true, onTaskStarted: true, onTaskComplete: true,
			},
			rmq: rmqMockCalls{pingSequencer: true, acknowledgeDelivery: true},
			s3: s3MockCalls{
				getDocumentText: true,
				saveResultsFile: true,
			},
			tagger: taggerCall{true},
		},
	)
}

func testFailedPingSequencer(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{
			rmqMockConfig: rmqMockConfig{pingSequencer: failingMethod{fail: true}},
		},
		methodsCalls{
			redis: redisMockCalls{
				getDocTask: true, onTaskStarted: true, onTaskComplete: true,
			},
			rmq: rmqMockCalls{pingSequencer: true, rejectDelivery: true},
			s3: s3MockCalls{
				getDocumentText: true,
				saveResultsFile: true,
			},
			tagger: taggerCall{true},
		},
	)
}
