package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

type ConnReader interface {
	ReadJSON(v interface{}) error
}

type ConnWriter interface {
	WriteJSON(v interface{}) error
}

var logger = logrus.New()

func main() {
	flags := parseFlags()

	logFile, debugLogFile, err := setupLogger(logger, logDir(), flags.Debug)
	if err != nil {
		color.Red("Logger error, exiting: %s", err)
		os.Exit(1)
	}
	defer closeLogFiles(logFile, debugLogFile)

	// Get WebSocket connection.
	conn, _, err := createConn(flags)
	if err != nil {
		color.Red("Connection error, exiting: %s", err)
		logger.Errorf("connection error: %v", err)
		return
	}
	defer conn.Close()

	u := serverURL(flags)
	logger.Infof("connected to %s", u.String())

	err = UI(conn, getMsgChan(conn), flags.Name)
	if err != nil {
		color.Red("TUI error, exiting: %s", err)
		logger.Errorf("TUI error: %v", err)
		return
	}

	color.Green("Goodbye!")
}
