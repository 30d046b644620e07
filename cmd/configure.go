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
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// configureCmd prompts for and stores the credentials a recipe raster's
// HTTPRecipe needs, e.g. in ~/.buzzard/credentials.toml.
var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Configure recipe-raster access, e.g. store your creds in ~/.buzzard.",
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := newConfigFromDir()
		if err != nil {
			return err
		}

		var configVars = []struct {
			prompt   string
			val      *string
			isSecret bool
		}{
			{"Username", &config.Username, false},
			{"Password", &config.Password, true},
		}
		for _, cv := range configVars {
			fmt.Printf(cv.prompt)
			if val := *cv.val; len(val) > 0 {
				if cv.isSecret {
					fmt.Printf(" [%s]", secretString(val[max(0, len(val)-4):]))
				} else {
					fmt.Printf(" [%s]", val)
				}
			}
			fmt.Printf(": ")

			var s string
			if n, err := fmt.Scanln(&s); err != nil && n > 0 {
				return fmt.Errorf("your input is bogus: %v", err)
			}
			if len(s) > 0 {
				*cv.val = s
			}
		}
		return writeConfig(&config)
	},
}

func init() {
	rootCmd.AddCommand(configureCmd)
}

// newConfigFromDir returns a Config populated from the on-disk
// configuration file only, with no env-var override and no validation —
// used by configure to seed its prompts with whatever is already saved.
func newConfigFromDir() (Config, error) {
	var config Config
	if err := viper.UnmarshalKey(viper.GetString("profile"), &config); err != nil {
		return Config{}, err
	}
	return config, nil
}

// writeConfig merges config into the on-disk credentials file under the
// active profile, preserving every other profile already stored there.
func writeConfig(config *Config) error {
	dir, err := ensureBuzzardDir()
	if err != nil {
		return err
	}

	profiles := make(map[string]Config)
	confFile := viper.ConfigFileUsed()
	if confFile == "" {
		confFile = filepath.Join(dir, configName+".toml")
	}

	if _, err := toml.DecodeFile(confFile, &profiles); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to parse the configuration file: %v", err)
	}

	profiles[viper.GetString("profile")] = *config
	file, err := os.Create(confFile)
	if err != nil {
		return fmt.Errorf("failed to write updated configuration to disk: %v", err)
	}
	defer file.Close()
	return toml.NewEncoder(file).Encode(profiles)
}

type secretString string

func (s secretString) String() (str string) {
	for i, c := range s {
		if i > 0 {
			str += string(c)
		} else {
			str += "*"
		}
	}
	return
}
