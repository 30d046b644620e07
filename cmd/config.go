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
	"errors"
	"os"
	"path"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
	"golang.org/x/oauth2"
)

// Config holds the bearer-token credentials a recipe raster's HTTPRecipe
// needs to authenticate against its remote tile service.
type Config struct {
	Username string        `mapstructure:"buzzard_username" toml:"buzzard_username"`
	Password string        `mapstructure:"buzzard_password" toml:"buzzard_password"`
	Token    *oauth2.Token `mapstructure:"buzzard_token" toml:"buzzard_token,omitempty"`
}

// newConfig returns a Config configured by pulling in the active profile's
// credentials via viper. When both BUZZARD_USERNAME and BUZZARD_PASSWORD
// are set they override the profile's username and password and drop its
// cached token.
func newConfig() (Config, error) {
	var config Config
	if err := viper.UnmarshalKey(viper.GetString("profile"), &config); err != nil {
		return Config{}, err
	}
	if viper.IsSet("buzzard_username") && viper.IsSet("buzzard_password") {
		config.Username = viper.GetString("buzzard_username")
		config.Password = viper.GetString("buzzard_password")
		config.Token = nil
	}
	if config.Username == "" {
		return Config{}, errors.New("no username found to use for authorization")
	}
	if config.Password == "" {
		return Config{}, errors.New("no password found to use for authorization")
	}
	return config, nil
}

// tokenSource adapts Config's cached token (if any) to oauth2.TokenSource
// for compute.NewHTTPRecipe; a Config without a cached token yields no
// Authorization header, which is valid for anonymous tile endpoints.
func (c Config) tokenSource() oauth2.TokenSource {
	if c.Token == nil {
		return nil
	}
	return oauth2.StaticTokenSource(c.Token)
}

// buzzardDir returns the directory buzzardctl stores its configuration in.
func buzzardDir() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", err
	}
	return path.Join(home, ".buzzard"), nil
}

// ensureBuzzardDir creates buzzardDir if it doesn't already exist.
func ensureBuzzardDir() (string, error) {
	dir, err := buzzardDir()
	if err != nil {
		return "", err
	}
	return dir, os.MkdirAll(dir, 0700)
}
