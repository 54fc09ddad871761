package lockfile

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestAcquireFresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "collection.lock")

	held, err := Acquire(path)
	if err != nil {
		t.Fatalf("Acquire error: %v", err)
	}
	if !held {
		t.Fatalf("fresh acquire should succeed")
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("lock file not created: %v", err)
	}
}

func TestAcquireRecentLockIsHeld(t *testing.T) {
	path := filepath.Join(t.TempDir(), "collection.lock")
	if _, err := Acquire(path); err != nil {
		t.Fatalf("Acquire error: %v", err)
	}

	// 刚创建的锁未过期，第二次获取应让位
	held, err := Acquire(path)
	if err != nil {
		t.Fatalf("Acquire error: %v", err)
	}
	if held {
		t.Fatalf("recent lock should block a second acquire")
	}
}

func TestAcquireStaleLockIsOverwritten(t *testing.T) {
	path := filepath.Join(t.TempDir(), "collection.lock")
	if _, err := Acquire(path); err != nil {
		t.Fatalf("Acquire error: %v", err)
	}

	// 把锁文件改老到阈值之外，模拟崩溃遗留
	stale := time.Now().Add(-StaleAfter - time.Minute)
	if err := os.Chtimes(path, stale, stale); err != nil {
		t.Fatalf("Chtimes error: %v", err)
	}

	held, err := Acquire(path)
	if err != nil {
		t.Fatalf("Acquire error: %v", err)
	}
	if !held {
		t.Fatalf("stale lock should be overwritten")
	}

	// 覆盖后锁应是新的
	if age, ok := Age(path); !ok || age > time.Minute {
		t.Fatalf("lock not refreshed: age=%v ok=%v", age, ok)
	}
}

func TestReleaseRemovesLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "collection.lock")
	if _, err := Acquire(path); err != nil {
		t.Fatalf("Acquire error: %v", err)
	}

	Release(path)
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("lock file should be removed, stat err=%v", err)
	}

	// 重复释放不报错
	Release(path)
}

func TestAgeMissingFile(t *testing.T) {
	if _, ok := Age(filepath.Join(t.TempDir(), "nope.lock")); ok {
		t.Fatalf("Age of missing file should report ok=false")
	}
}
