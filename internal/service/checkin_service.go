package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gamemarket/internal/model"
	"gamemarket/internal/repository"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrAlreadyCheckedIn = errors.New("今日已签到")
	ErrCheckinNotReady  = errors.New("今日需先完成至少一个任务才能签到")
)

// 周签到基础金额：工作日 10，周六 20，周日 30
var checkinBaseRewards = map[time.Weekday]int64{
	time.Sunday:    30,
	time.Monday:    10,
	time.Tuesday:   10,
	time.Wednesday: 10,
	time.Thursday:  10,
	time.Friday:    10,
	time.Saturday:  20,
}

// 连签里程碑（3/7/14/30 天）额外 +50
const streakMilestoneBonus = 50

var streakMilestones = map[int]bool{3: true, 7: true, 14: true, 30: true}

func baseRewardFor(day time.Weekday) int64 {
	return checkinBaseRewards[day]
}

func streakBonus(streak int) int64 {
	if streakMilestones[streak] {
		return streakMilestoneBonus
	}
	return 0
}

func dateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

type checkinStore interface {
	Create(ctx context.Context, record *model.CheckinRecord) error
	Delete(ctx context.Context, id int64) error
	GetByUserAndDate(ctx context.Context, userID int64, date string) (*model.CheckinRecord, error)
}

type missionCounter interface {
	CountCompletedByUserOnDate(ctx context.Context, userID int64, dayStart, dayEnd time.Time) (int64, error)
}

type coinWallet interface {
	Apply(ctx context.Context, req *MutationRequest) (int64, error)
	Credit(ctx context.Context, req *MutationRequest) (int64, error)
	Debit(ctx context.Context, req *MutationRequest) (int64, error)
}

// CheckinService 每日签到
type CheckinService struct {
	checkins checkinStore
	missions missionCounter
	wallet   coinWallet
	now      func() time.Time
}

func NewCheckinService(db *gorm.DB) *CheckinService {
	return &CheckinService{
		checkins: repository.NewCheckinRepository(db),
		missions: repository.NewMissionRepository(db),
		wallet:   NewWalletService(db),
		now:      time.Now,
	}
}

// CheckinStatus 签到页状态
type CheckinStatus struct {
	CheckedInToday bool  `json:"checked_in_today"`
	CanCheckIn     bool  `json:"can_check_in"`
	MissionsToday  int64 `json:"missions_today"`
	CurrentStreak  int   `json:"current_streak"`
	TodayReward    int64 `json:"today_reward"` // 今日可领金额（基础+加成）
}

// Status 查询签到状态
// 签到资格：今天未签 且 今天至少完成过一个任务
func (s *CheckinService) Status(ctx context.Context, userID int64) (*CheckinStatus, error) {
	now := s.now()
	today := dateKey(now)
	yesterday := dateKey(now.AddDate(0, 0, -1))

	todayRecord, err := s.checkins.GetByUserAndDate(ctx, userID, today)
	if err != nil {
		return nil, fmt.Errorf("查询签到记录失败: %w", err)
	}

	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	missionsToday, err := s.missions.CountCompletedByUserOnDate(ctx, userID, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("查询任务完成数失败: %w", err)
	}

	status := &CheckinStatus{
		CheckedInToday: todayRecord != nil,
		MissionsToday:  missionsToday,
	}

	if todayRecord != nil {
		status.CurrentStreak = todayRecord.Streak
		status.TodayReward = todayRecord.Amount
		return status, nil
	}

	streak := 1
	if yRecord, err := s.checkins.GetByUserAndDate(ctx, userID, yesterday); err != nil {
		return nil, fmt.Errorf("查询签到记录失败: %w", err)
	} else if yRecord != nil {
		streak = yRecord.Streak + 1
	}

	status.CanCheckIn = missionsToday > 0
	status.CurrentStreak = streak - 1
	status.TodayReward = baseRewardFor(now.Weekday()) + streakBonus(streak)
	return status, nil
}

// Claim 执行签到
//
// 【关键点】先落签到记录（唯一索引裁决并发），再加币。
// 先加币后落记录会在并发重复签到时多发一次奖励；
// 反过来只会在加币失败时留下一条待补偿的记录，这里直接删除记录回退
func (s *CheckinService) Claim(ctx context.Context, userID int64, ip string) (*model.CheckinRecord, int64, error) {
	now := s.now()
	today := dateKey(now)
	yesterday := dateKey(now.AddDate(0, 0, -1))

	// 预检：已签过直接拒绝（并发窗口由唯一索引兜底）
	if existing, err := s.checkins.GetByUserAndDate(ctx, userID, today); err != nil {
		return nil, 0, fmt.Errorf("查询签到记录失败: %w", err)
	} else if existing != nil {
		return nil, 0, ErrAlreadyCheckedIn
	}

	// 业务门槛：今天至少完成一个任务
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	missionsToday, err := s.missions.CountCompletedByUserOnDate(ctx, userID, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		return nil, 0, fmt.Errorf("查询任务完成数失败: %w", err)
	}
	if missionsToday == 0 {
		return nil, 0, ErrCheckinNotReady
	}

	// 连签：昨天有记录则 +1，否则重置为 1
	streak := 1
	if yRecord, err := s.checkins.GetByUserAndDate(ctx, userID, yesterday); err != nil {
		return nil, 0, fmt.Errorf("查询签到记录失败: %w", err)
	} else if yRecord != nil {
		streak = yRecord.Streak + 1
	}

	amount := baseRewardFor(now.Weekday()) + streakBonus(streak)

	record := &model.CheckinRecord{
		UserID:      userID,
		CheckinDate: today,
		Amount:      amount,
		Streak:      streak,
	}
	if err := s.checkins.Create(ctx, record); err != nil {
		if errors.Is(err, repository.ErrCheckinExists) {
			return nil, 0, ErrAlreadyCheckedIn
		}
		return nil, 0, fmt.Errorf("落库签到记录失败: %w", err)
	}

	newBalance, err := s.wallet.Credit(ctx, &MutationRequest{
		UserID:   userID,
		Actor:    fmt.Sprintf("%d", userID),
		Delta:    amount,
		Category: model.LedgerCategoryCheckin,
		Remark:   fmt.Sprintf("每日签到-连签%d天", streak),
		IP:       ip,
	})
	if err != nil {
		// 加币失败，回退签到记录，用户可重试
		if delErr := s.checkins.Delete(ctx, record.ID); delErr != nil {
			logrus.Errorf("[Checkin] 回退签到记录失败: userID=%d, recordID=%d, err=%v", userID, record.ID, delErr)
		}
		return nil, 0, fmt.Errorf("发放签到奖励失败: %w", err)
	}

	logrus.Infof("[Checkin] 签到成功: userID=%d, streak=%d, amount=%d", userID, streak, amount)
	return record, newBalance, nil
}
