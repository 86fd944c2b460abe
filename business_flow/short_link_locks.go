package businessflow

import "sync"

// shortLinkGenMutex serialises code generation and insert within this process;
// the unique index still arbitrates between processes
var (
	shortLinkGenMutex sync.Mutex
)

func lockShortLinkGen() {
	shortLinkGenMutex.Lock()
}

func unlockShortLinkGen() {
	shortLinkGenMutex.Unlock()
}
