package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/Dias221467/habit_tracker/internal/models"
	"github.com/Dias221467/habit_tracker/internal/repository/memory"
	"github.com/Dias221467/habit_tracker/pkg/logger"
	"github.com/sirupsen/logrus"
)

type seedData struct {
	Users  []models.User  `json:"users"`
	Habits []models.Habit `json:"habits"`
}

// loadSeed fills the memory stores from a JSON file.
func loadSeed(path string, users *memory.Users, habits *memory.Habits) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read seed file: %w", err)
	}
	var data seedData
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("failed to parse seed file %s: %w", path, err)
	}

	for _, u := range data.Users {
		users.Add(u)
	}
	for _, h := range data.Habits {
		habits.Add(h)
	}
	logger.Log.WithFields(logrus.Fields{
		"users":  len(data.Users),
		"habits": len(data.Habits),
	}).Info("Seeded memory storage")
	return nil
}
