// Package memory holds in-process repositories used by tests and by the
// local development profile.
package memory

import (
	"sync"

	"activity_tracker/internal/domain/activity"
	"activity_tracker/internal/domain/course"
	"activity_tracker/internal/domain/user"
)

type (
	DB struct {
		users    *userTable
		courses  *courseTable
		activity *activityTable
	}

	userTable struct {
		sync.RWMutex
		seq   int64
		table map[int64]*user.User
	}

	courseTable struct {
		sync.RWMutex
		seq   int64
		table map[int64]*course.Offering
	}

	activityTable struct {
		sync.RWMutex
		seq   int64
		table map[int64]*activity.Record
	}
)

func Open() *DB {
	return &DB{
		users:    &userTable{table: make(map[int64]*user.User)},
		courses:  &courseTable{table: make(map[int64]*course.Offering)},
		activity: &activityTable{table: make(map[int64]*activity.Record)},
	}
}
