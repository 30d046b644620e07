// Copyright © 2018 DigitalGlobe
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const configName = "credentials"

var (
	version = "head"
	commit  = "head"
	date    = "none"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use: "buzzardctl",
	Long: `A CLI for posting queries against a buzzard raster scheduler.

buzzardctl can be configured using the 'buzzardctl configure' command to
store the bearer-token credentials a recipe raster's HTTPRecipe needs, or
by setting the BUZZARD_USERNAME and BUZZARD_PASSWORD environment
variables.

buzzardctl supports "profiles" if you have more than one set of
credentials. By default, "default" is used unless overridden with
--profile.
`,
	Version: fmt.Sprintf("%v, commit %v, built at %v", version, commit, date),
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Called once by main.main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("profile", "default", "credentials profile to use")
	viper.BindPFlag("profile", rootCmd.PersistentFlags().Lookup("profile"))

	viper.BindEnv("buzzard_username")
	viper.BindEnv("buzzard_password")

	cobra.OnInitialize(initConfig)
}

func initConfig() {
	viper.RegisterAlias("ActiveConfig", viper.GetString("profile"))

	dir, err := buzzardDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed getting path of buzzard config directory, err: %+v\n", err)
		os.Exit(1)
	}

	viper.SetConfigName(configName)
	viper.AddConfigPath(dir)
	viper.ReadInConfig()
}
