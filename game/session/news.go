package session

import "context"

// Headlines rotate on the news ticker.
var Headlines = []string{
	"Рынок автономеров активен! Найдите свою удачу...",
	"ГИБДД выпускает новые коробки каждый день!",
	"Осторожно с чёрным рынком - много подделок!",
	"Гаражные знакомства требуют репутации...",
	"Элитные номера растут в цене!",
	"Разборка - шанс найти редкие номера дёшево!",
}

// startNews registers the session's news ticker.
func (g *Game) startNews() {
	if g.cfg.NewsInterval <= 0 {
		return
	}
	g.sched.Every(g.ID, "news", g.cfg.NewsInterval, g.rotateNews)
}

func (g *Game) rotateNews() {
	g.mu.Lock()
	defer g.mu.Unlock()
	h := Headlines[g.newsIdx]
	g.newsIdx = (g.newsIdx + 1) % len(Headlines)
	g.headline = h
	g.notify(context.Background(), SeverityInfo, "📰 "+h)
}
