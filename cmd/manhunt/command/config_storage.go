package command

import (
	"fmt"

	"github.com/pixil98/go-errors"

	"github.com/pixil98/go-manhunt/internal/storage"
)

type StorageConfig struct {
	HistoryPath string `json:"history_path"`
}

func (c *StorageConfig) validate() error {
	el := errors.NewErrorList()

	if c.HistoryPath == "" {
		el.Add(fmt.Errorf("history_path is required"))
	}

	return el.Err()
}

func (c *StorageConfig) buildHistoryStore() (*storage.HistoryStore, error) {
	return storage.NewHistoryStore(c.HistoryPath)
}
