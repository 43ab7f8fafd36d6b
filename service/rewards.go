package service

import "time"

// Reward rules
const (
	MessageThreshold  int64 = 100
	MessageRewardRate int64 = 5

	VoiceMinuteThreshold int64 = 60
	VoiceRewardRate      int64 = 5

	InviteRewardAmount int64 = 20
	BoostRewardAmount  int64 = 500

	DailyBaseReward int64 = 5
	DailyStreakCap        = 15
)

// ThresholdReward returns the reward owed for netNew units of activity and
// how far the watermark advances to pay it. Only whole multiples of
// threshold are paid; the remainder carries over.
func ThresholdReward(netNew, threshold, rate int64) (amount int64, consumed int64) {
	if netNew < threshold || threshold <= 0 {
		return 0, 0
	}
	units := netNew / threshold
	return units * rate, units * threshold
}

// NextDailyStreak computes the streak for a claim made at now. A claim on the
// UTC day after lastClaim extends the streak; any longer gap starts over at 1.
func NextDailyStreak(lastClaim *time.Time, currentStreak int, now time.Time) int {
	if lastClaim == nil {
		return 1
	}
	if UTCDay(*lastClaim).AddDate(0, 0, 1).Equal(UTCDay(now)) {
		return currentStreak + 1
	}
	return 1
}

// DailyReward is the base reward plus one per streak day, capped
func DailyReward(streak int) int64 {
	return DailyBaseReward + int64(min(streak, DailyStreakCap))
}

// BoostReward returns the pool injection owed when the boost count moves
// from rewarded to current. Decreases pay nothing.
func BoostReward(rewarded, current int) int64 {
	if current <= rewarded {
		return 0
	}
	return int64(current-rewarded) * BoostRewardAmount
}
