// sofia-message отправляет и принимает SIP MESSAGE через агента nua.
//
//	sofia-message send sip:bob@127.0.0.1:5070 "Привет"
//	sofia-message invite sip:bob@127.0.0.1:5070
//	sofia-message listen --config sofia.yaml
//	sofia-message inbox --limit 10
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Ошибка:", err)
		os.Exit(1)
	}
}
