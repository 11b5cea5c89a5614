// Package keylock 提供按键划分的互斥锁：同一个键串行，不同键互不阻塞。
package keylock

import "sync"

type entry struct {
	mu   sync.Mutex
	refs int
}

// Locker 按字符串键加锁。没有持有者的键会被回收，map 不会无限增长。
type Locker struct {
	mu    sync.Mutex
	locks map[string]*entry
}

// New 创建一个 Locker。
func New() *Locker {
	return &Locker{locks: make(map[string]*entry)}
}

// Lock 获取 key 对应的锁，返回的函数用于释放，且只能调用一次。
func (l *Locker) Lock(key string) (unlock func()) {
	l.mu.Lock()
	e, ok := l.locks[key]
	if !ok {
		e = &entry{}
		l.locks[key] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}

// Len 返回当前被持有或等待中的键数量。
func (l *Locker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
