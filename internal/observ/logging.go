package observ

import (
	"encoding/json"
	"fmt"
	"time"
)

// Log emits one JSON object per line to stdout. Every gate, skip and
// decision in the agent goes through here with a "reason" key so the
// operator can reconstruct a full cycle from the log alone.
func Log(event string, kv map[string]any) {
	if kv == nil {
		kv = map[string]any{}
	}
	kv["ts"] = time.Now().UTC().Format(time.RFC3339Nano)
	kv["event"] = event
	b, _ := json.Marshal(kv)
	fmt.Println(string(b))
}
