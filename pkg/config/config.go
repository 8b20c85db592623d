// Package config는 YAML 파일과 환경 변수를 합쳐 타입이 있는 설정 구조체로 읽어 옵니다.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// 설정 디렉토리 경로
const configDir = "configs"

// Loader 서비스 하나의 설정 파일 검색 경로와 기본값을 보관합니다.
//
// 검색 순서: $CONFIG_PATH, configs/{APP_ENV}, configs/example.
// 환경 변수는 {SERVICE}_SECTION_KEY 형식으로 파일 값을 덮어씁니다.
type Loader struct {
	service  string
	defaults map[string]interface{}
	paths    []string
}

// NewLoader APP_ENV(기본 dev)와 CONFIG_PATH로 검색 경로를 정합니다.
func NewLoader(service string) *Loader {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}

	paths := make([]string, 0, 3)
	if custom := os.Getenv("CONFIG_PATH"); custom != "" {
		paths = append(paths, custom)
	}
	paths = append(paths, filepath.Join(configDir, env), filepath.Join(configDir, "example"))

	return &Loader{service: service, paths: paths}
}

// WithDefaults 파일에 없는 키의 기본값을 등록합니다.
// viper는 기본값이나 파일에 있는 키만 Unmarshal 시 환경 변수로 덮어쓰므로 모든 키를 여기에 둡니다.
func (l *Loader) WithDefaults(defaults map[string]interface{}) *Loader {
	l.defaults = defaults
	return l
}

// WithPaths 검색 경로를 바꿉니다.
func (l *Loader) WithPaths(paths ...string) *Loader {
	l.paths = paths
	return l
}

// Load 첫 번째로 찾은 {service}.yaml을 읽고 out에 디코딩합니다. 사용한 파일 경로를 반환합니다.
func (l *Loader) Load(out interface{}) (string, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(strings.ToUpper(l.service))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, value := range l.defaults {
		v.SetDefault(key, value)
	}

	file, err := l.find()
	if err != nil {
		return "", err
	}
	v.SetConfigFile(file)
	if err := v.ReadInConfig(); err != nil {
		return "", fmt.Errorf("설정 파일 로드 실패 (%s): %w", file, err)
	}

	if err := v.Unmarshal(out); err != nil {
		return "", fmt.Errorf("설정 디코딩 실패: %w", err)
	}
	return file, nil
}

func (l *Loader) find() (string, error) {
	name := l.service + ".yaml"
	for _, dir := range l.paths {
		candidate := filepath.Join(dir, name)
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("설정 파일 확인 실패 (%s): %w", candidate, err)
		}
	}
	return "", fmt.Errorf("설정 파일 없음: %s (검색 경로: %s)", name, strings.Join(l.paths, ", "))
}
