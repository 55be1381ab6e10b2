// Package logx is afkbot's logging layer over zerolog. Lines go to a
// human-readable console sink on stderr, a JSON file, or both, and the
// [logging] section can be reloaded without restarting the scheduler.
// Components tag their lines with a "comp" field via Logger.With.
package logx
