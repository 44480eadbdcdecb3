package instance

import (
	"fmt"
	"os"
)

// GetID identifies this process for lock ownership and logs. ODDSVAULT_WORKER_ID
// wins; otherwise hostname plus pid.
func GetID() string {
	if id := os.Getenv("ODDSVAULT_WORKER_ID"); id != "" {
		return id
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}
