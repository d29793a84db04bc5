package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("AULANET_TEST_MODE") == "" {
			_ = os.Setenv("AULANET_TEST_MODE", "1")
		}
	})
}
