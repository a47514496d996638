package game

import "time"

type timerScheduler struct{}

// TimerScheduler schedules callbacks on time.AfterFunc.
func TimerScheduler() Scheduler { return timerScheduler{} }

func (timerScheduler) AfterFunc(d time.Duration, f func()) { time.AfterFunc(d, f) }
