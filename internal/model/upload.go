package model

import (
	"time"
)

const (
	UploadStatusQueued     = "QUEUED"
	UploadStatusProcessing = "PROCESSING"
	UploadStatusDone       = "DONE"
	UploadStatusFailed     = "FAILED"
)

var uploadStatusTransitions = map[string][]string{
	UploadStatusQueued:     {UploadStatusProcessing},
	UploadStatusProcessing: {UploadStatusDone, UploadStatusFailed},
}

// UploadCanTransitionTo 批量上架任务状态机校验
func UploadCanTransitionTo(currentStatus, targetStatus string) bool {
	for _, s := range uploadStatusTransitions[currentStatus] {
		if s == targetStatus {
			return true
		}
	}
	return false
}

// UploadJob 批量上架任务
// 请求落库后立即返回 job_no，解析在后台任务中进行，
// 状态在固定检查点推进：QUEUED -> PROCESSING -> DONE|FAILED
type UploadJob struct {
	ID         int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	JobNo      string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"job_no"`
	OperatorID int64      `gorm:"index;not null" json:"operator_id"` // 提交的管理员
	Category   string     `gorm:"type:varchar(32);not null" json:"category"`
	Payload    string     `gorm:"type:mediumtext;not null" json:"-"` // 原始文本，一行一个账号
	Status     string     `gorm:"type:varchar(20);index;not null;default:QUEUED" json:"status"`
	Total      int        `gorm:"not null;default:0" json:"total"`
	Imported   int        `gorm:"not null;default:0" json:"imported"`
	Skipped    int        `gorm:"not null;default:0" json:"skipped"`
	Error      string     `gorm:"type:varchar(512)" json:"error"`
	FinishedAt *time.Time `json:"finished_at"`
	CreatedAt  time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (UploadJob) TableName() string {
	return "upload_job"
}
