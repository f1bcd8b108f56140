package utils

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateReference returns a unique payment reference such as
// "PAY-20240131-9F1C2A7B3D4E".
func GenerateReference(prefix string) string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return prefix + "-" + time.Now().Format("20060102") + "-" + id[:12]
}
