package tasks

import (
	"github.com/presic/chunker/redis"
)

type Client struct {
	Documents DocumentTasks
}

// NewClient is the preferred way of working with task statuses.
func NewClient() (Client, error) {
	docRedisClient, err := redis.NewClient(DocumentsDB)
	if err != nil {
		return Client{}, err
	}
	return Client{
		Documents: DocumentTasks{client: docRedisClient},
	}, nil
}

func (client *Client) Close() {
	_ = client.Documents.client.Close()
}
