package lockfile

import (
	"fmt"
	"os"
	"time"
)

// StaleAfter 锁文件超过该时长视为上一轮崩溃遗留，可以覆盖继续
const StaleAfter = 30 * time.Minute

// Acquire 尝试创建锁文件。已有锁且未过期时返回 held=false（调用方应跳过本轮）；
// 锁过期或不存在时写入新锁并返回 held=true。
// 这是建议性的跨进程协调：同机 cron 不会并发触发，不处理竞态写。
func Acquire(path string) (bool, error) {
	now := time.Now()

	if info, err := os.Stat(path); err == nil {
		age := now.Sub(info.ModTime())
		if age < StaleAfter {
			return false, nil
		}
		// 过期锁大概率来自崩溃的进程，覆盖继续
	}

	content := fmt.Sprintf("collection cycle started at %s\n", now.Format(time.RFC3339))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return false, fmt.Errorf("write lock file: %w", err)
	}
	return true, nil
}

// Age 返回现有锁文件的年龄；不存在时 ok 为 false
func Age(path string) (time.Duration, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, false
	}
	return time.Since(info.ModTime()), true
}

// Release 无条件删除锁文件，出错路径也要调用（defer），
// 这样崩溃后的下一轮在过期阈值后能自愈。
func Release(path string) {
	_ = os.Remove(path)
}
