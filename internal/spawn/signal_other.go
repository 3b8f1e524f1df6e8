//go:build !unix

package spawn

import "os"

func signalName(*os.ProcessState) string { return "" }

func signalNumber(string) int { return 0 }
