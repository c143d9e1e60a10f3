package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("TABLEKEEP_TEST_MODE") == "" {
			_ = os.Setenv("TABLEKEEP_TEST_MODE", "1")
		}
	})
}
