/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package main

import (
	"github.com/josephgoksu/PRDWing/cmd"
	"github.com/josephgoksu/PRDWing/internal/logger"
)

func main() {
	defer logger.HandlePanic()
	cmd.Execute()
}
