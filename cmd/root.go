/*
Chatbot Platform - Multi-tenant WhatsApp Chatbot Platform
Copyright (C) 2025-2026 Aziel Cruzado <contacto@azielcruzado.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// Package cmd holds the cobra entrypoints: one binary, two server
// surfaces (backend and gateway).
package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/AzielCF/chatbot-platform/appconfig"
	"github.com/AzielCF/chatbot-platform/corelog"
)

var (
	cfg *appconfig.Config
	log *logrus.Logger
)

var rootCmd = &cobra.Command{
	Use:   "chatbot-platform",
	Short: "Multi-tenant WhatsApp chatbot platform",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = appconfig.Load()
		if err != nil {
			return err
		}
		log = corelog.New(cfg.LogLevel, cfg.LogFormat)
		return nil
	},
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
