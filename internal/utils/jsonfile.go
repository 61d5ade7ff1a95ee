package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// WriteJSONFile 先写同目录临时文件再原子 rename 到目标路径，
// 保证外部观察不到半写状态。
func WriteJSONFile(path string, v interface{}) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // rename 成功后为 no-op

	enc := json.NewEncoder(tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		tmp.Close()
		return fmt.Errorf("encode json to %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename %s to %s: %w", tmpPath, path, err)
	}
	return nil
}

// JSONTarget 是 WriteJSONFiles 的单个输出目标
type JSONTarget struct {
	Path  string
	Value interface{}
}

// WriteJSONFiles 把多个集合写到各自路径，要么全部出现要么全不出现：
// 先把所有目标编码到同目录临时文件，全部成功后再逐个 rename。
func WriteJSONFiles(targets ...JSONTarget) error {
	tmpPaths := make([]string, 0, len(targets))
	cleanup := func() {
		for _, p := range tmpPaths {
			os.Remove(p)
		}
	}

	for _, t := range targets {
		dir := filepath.Dir(t.Path)
		tmp, err := os.CreateTemp(dir, "."+filepath.Base(t.Path)+".tmp-*")
		if err != nil {
			cleanup()
			return fmt.Errorf("create temp file in %s: %w", dir, err)
		}
		tmpPaths = append(tmpPaths, tmp.Name())

		enc := json.NewEncoder(tmp)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(t.Value); err != nil {
			tmp.Close()
			cleanup()
			return fmt.Errorf("encode json to %s: %w", tmp.Name(), err)
		}
		if err := tmp.Close(); err != nil {
			cleanup()
			return fmt.Errorf("close %s: %w", tmp.Name(), err)
		}
	}

	for i, t := range targets {
		if err := os.Rename(tmpPaths[i], t.Path); err != nil {
			cleanup()
			return fmt.Errorf("rename %s to %s: %w", tmpPaths[i], t.Path, err)
		}
	}
	return nil
}

// ReadJSONFile 读取 JSON 文件到 v。文件不存在返回 (false, nil)：
// 对可选输入（如上一 epoch 的集合）是合法状态。
func ReadJSONFile(path string, v interface{}) (bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("unmarshal %s: %w", path, err)
	}
	return true, nil
}
