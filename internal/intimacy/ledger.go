package intimacy

import (
	"time"

	"go.uber.org/zap"

	"companion-server/internal/domain"
)

// levelBreakpoint - одна строка разреженной таблицы XP-порогов.
// Уровень между табличными строками интерполируется линейно.
type levelBreakpoint struct {
	Level int
	XP    float64
}

// xpBreakpoints отсортирована по возрастанию. Значения - параметры тюнинга.
var xpBreakpoints = []levelBreakpoint{
	{0, 0},
	{1, 50},
	{3, 200},
	{5, 600},
	{10, 2000},
	{20, 7000},
	{35, 22000},
	{50, 60000},
	{75, 160000},
	{100, 400000},
}

// intimacySegment - один из пяти кусочно-линейных сегментов level -> intimacy.
// Индекс сегмента и есть Stage: это развязывает неограниченный
// пользовательский уровень и ограниченное значение для гейтинга.
type intimacySegment struct {
	Stage      domain.Stage
	LevelLo    int
	LevelHi    int
	IntimacyLo float64
	IntimacyHi float64
}

var intimacySegments = []intimacySegment{
	{domain.StageStranger, 0, 5, 0, 20},
	{domain.StageAcquaintance, 5, 15, 20, 40},
	{domain.StageFriend, 15, 30, 40, 60},
	{domain.StageRomance, 30, 55, 60, 80},
	{domain.StageIntimate, 55, 100, 80, 100},
}

// LevelForXP возвращает уровень для накопленного XP: пол линейной
// интерполяции по разреженной таблице. Монотонна по xp и идемпотентна.
func LevelForXP(xp float64) int {
	if xp <= 0 {
		return 0
	}
	last := xpBreakpoints[len(xpBreakpoints)-1]
	if xp >= last.XP {
		return last.Level
	}
	for i := 1; i < len(xpBreakpoints); i++ {
		lo, hi := xpBreakpoints[i-1], xpBreakpoints[i]
		if xp < hi.XP {
			frac := (xp - lo.XP) / (hi.XP - lo.XP)
			return lo.Level + int(frac*float64(hi.Level-lo.Level))
		}
	}
	return last.Level
}

// IntimacyForLevel отображает уровень в ограниченное значение близости
// [0, 100] по пяти кусочно-линейным сегментам.
func IntimacyForLevel(level int) float64 {
	if level <= 0 {
		return 0
	}
	last := intimacySegments[len(intimacySegments)-1]
	if level >= last.LevelHi {
		return last.IntimacyHi
	}
	for _, seg := range intimacySegments {
		if level < seg.LevelHi {
			frac := float64(level-seg.LevelLo) / float64(seg.LevelHi-seg.LevelLo)
			return seg.IntimacyLo + frac*(seg.IntimacyHi-seg.IntimacyLo)
		}
	}
	return last.IntimacyHi
}

// StageForLevel возвращает фазу отношений: сегмент, содержащий уровень.
func StageForLevel(level int) domain.Stage {
	if level <= 0 {
		return domain.StageStranger
	}
	for _, seg := range intimacySegments {
		if level < seg.LevelHi {
			return seg.Stage
		}
	}
	return domain.StageIntimate
}

// Config - параметры леджера.
type Config struct {
	DailyCeiling float64       // максимум XP за скользящее окно
	Window       time.Duration // длина окна (сутки)
}

// DefaultConfig возвращает параметры по умолчанию.
func DefaultConfig() Config {
	return Config{
		DailyCeiling: 500,
		Window:       24 * time.Hour,
	}
}

// Ledger начисляет XP с учетом скользящего суточного потолка. XP сверх
// потолка не теряется: записывается в DeferredXP и доначисляется, когда
// окно откатывается.
type Ledger struct {
	cfg    Config
	logger *zap.Logger
}

// NewLedger создает леджер.
func NewLedger(cfg Config, logger *zap.Logger) *Ledger {
	if cfg.DailyCeiling <= 0 {
		cfg.DailyCeiling = DefaultConfig().DailyCeiling
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultConfig().Window
	}
	return &Ledger{cfg: cfg, logger: logger.Named("IntimacyLedger")}
}

// GrantResult - итог начисления.
type GrantResult struct {
	Applied  float64 // XP, зачтенный в TotalXP
	Deferred float64 // текущий остаток отложенного XP после начисления
	OldLevel int
	NewLevel int
}

// Grant начисляет amount XP (плюс дренаж отложенного остатка) в пределах
// суточного потолка и пересчитывает уровень. Мутирует состояние; вызывается
// внутри атомарного коммита хода.
func (l *Ledger) Grant(st *domain.RelationshipState, amount float64, now time.Time) GrantResult {
	if amount < 0 {
		amount = 0
	}

	earned := l.earnedInWindow(st, now)
	headroom := l.cfg.DailyCeiling - earned
	if headroom < 0 {
		headroom = 0
	}

	// Сначала дренируем отложенный остаток, затем свежий XP.
	pool := st.DeferredXP + amount
	applied := pool
	if applied > headroom {
		applied = headroom
	}
	st.DeferredXP = pool - applied

	oldLevel := st.Level
	if applied > 0 {
		st.TotalXP += applied
		st.PushXPGrant(domain.XPGrant{Amount: applied, At: now})
	}
	st.Level = LevelForXP(st.TotalXP)

	if st.Level != oldLevel {
		l.logger.Debug("level changed",
			zap.Int("old_level", oldLevel),
			zap.Int("new_level", st.Level),
			zap.Float64("total_xp", st.TotalXP))
	}

	return GrantResult{
		Applied:  applied,
		Deferred: st.DeferredXP,
		OldLevel: oldLevel,
		NewLevel: st.Level,
	}
}

// earnedInWindow суммирует начисления внутри скользящего окна.
func (l *Ledger) earnedInWindow(st *domain.RelationshipState, now time.Time) float64 {
	var sum float64
	for _, g := range st.RecentXP {
		if now.Sub(g.At) <= l.cfg.Window {
			sum += g.Amount
		}
	}
	return sum
}
