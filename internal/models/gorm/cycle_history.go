package gorm

import "time"

// CycleHistory records one completed pipeline cycle for observability and
// incremental bookkeeping.
type CycleHistory struct {
	ID         string    `gorm:"column:id;primaryKey;type:uuid"`
	CycleKind  string    `gorm:"column:cycle_kind;type:varchar(30);not null"`
	Processed  int       `gorm:"column:processed;type:integer;not null;default:0"`
	Failed     int       `gorm:"column:failed;type:integer;not null;default:0"`
	DurationMS int64     `gorm:"column:duration_ms;type:bigint;not null;default:0"`
	Note       string    `gorm:"column:note;type:text"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}

func (CycleHistory) TableName() string {
	return "cycle_history"
}
