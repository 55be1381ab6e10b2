package config

import (
	"reflect"
	"sort"
	"strings"

	logx "afkbot/pkg/logx"
)

// SummarizeConfigChange returns (1) the changed sections, (2) structured
// attrs for logging, and (3) the subset of changed sections that only take
// effect after a restart. Only logging is applied live; key policies are
// fixed for the process lifetime.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field, []string) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 6)
	restart := make([]string, 0, 5)
	attrs := make([]logx.Field, 0, 12)

	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logx.level", newCfg.Logging.Level),
			logx.Bool("logx.console", newCfg.Logging.Console),
			logx.Bool("logx.file_enabled", newCfg.Logging.File.Enabled),
		)
	}

	if oldCfg.Serial != newCfg.Serial {
		changed = append(changed, "serial")
		restart = append(restart, "serial")
		attrs = append(attrs,
			logx.String("serial.driver", newCfg.Serial.Driver),
			logx.String("serial.port", strings.TrimSpace(newCfg.Serial.Port)),
			logx.Int("serial.baud", newCfg.Serial.Baud),
		)
	}

	if !reflect.DeepEqual(oldCfg.Keys, newCfg.Keys) {
		changed = append(changed, "keys")
		restart = append(restart, "keys")
		if ks := changedKeys(oldCfg.Keys, newCfg.Keys); len(ks) > 0 {
			attrs = append(attrs, logx.String("keys.changed", strings.Join(ks, ",")))
		}
	}

	if !sameStrings(oldCfg.Loggable, newCfg.Loggable) || !reflect.DeepEqual(oldCfg.ExtraBlock, newCfg.ExtraBlock) {
		changed = append(changed, "press")
		restart = append(restart, "press")
		attrs = append(attrs,
			logx.Int("loggable.count", len(newCfg.Loggable)),
			logx.Int("extra_block.count", len(newCfg.ExtraBlock)),
		)
	}

	if oldCfg.Timing != newCfg.Timing {
		changed = append(changed, "timing")
		restart = append(restart, "timing")
		attrs = append(attrs,
			logx.String("timing.human_delay", string(newCfg.Timing.HumanDelay)),
			logx.String("timing.tick", string(newCfg.Timing.Tick)),
		)
	}

	if oldCfg.UI != newCfg.UI {
		changed = append(changed, "ui")
		restart = append(restart, "ui")
		attrs = append(attrs, logx.String("ui.mode", newCfg.UI.Mode))
	}

	return changed, attrs, restart
}

// changedKeys lists key names whose interval was added, removed or edited.
func changedKeys(a, b map[string]Interval) []string {
	seen := map[string]bool{}
	for k, v := range a {
		if w, ok := b[k]; !ok || w != v {
			seen[k] = true
		}
	}
	for k := range b {
		if _, ok := a[k]; !ok {
			seen[k] = true
		}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sameStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	aa := append([]string(nil), a...)
	bb := append([]string(nil), b...)
	sort.Strings(aa)
	sort.Strings(bb)
	return reflect.DeepEqual(aa, bb)
}
