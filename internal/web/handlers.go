package web

import (
	"github.com/gofiber/fiber/v2"

	"github.com/smysle/gift-shuffle-go/internal/service"
)

// getStatus 场次状态
func (s *Server) getStatus(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	status, err := s.svc.Status.Status(id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(status)
}

// getLatestWinner 按游标查询最新中奖者
func (s *Server) getLatestWinner(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	lastKnown, err := queryInt(c, "last_known_slot", 0)
	if err != nil {
		return fail(c, err)
	}
	latest, err := s.svc.Status.LatestWinner(id, lastKnown)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(latest)
}

// getWinners 中奖记录
func (s *Server) getWinners(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	after, err := queryInt(c, "after", 0)
	if err != nil {
		return fail(c, err)
	}
	limit, err := queryInt(c, "limit", 0)
	if err != nil {
		return fail(c, err)
	}
	winners, err := s.svc.Status.Winners(id, after, limit)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"winners": winners})
}

// getRoundGifts 轮次库存
func (s *Server) getRoundGifts(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	gifts, err := s.svc.Status.RoundGifts(id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"gifts": gifts})
}

// startSession 开始场次
func (s *Server) startSession(c *fiber.Ctx) error {
	var req service.StartSessionRequest
	if err := parseBody(c, &req); err != nil {
		return fail(c, err)
	}
	session, err := s.svc.Sessions.StartSession(c.UserContext(), actorID(c), &req)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(session)
}

// listSessions 场次列表
func (s *Server) listSessions(c *fiber.Ctx) error {
	sessions, err := s.svc.Sessions.ListSessions(actorID(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"sessions": sessions})
}

// getSession 场次详情
func (s *Server) getSession(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	session, err := s.svc.Sessions.GetSession(actorID(c), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(session)
}

// completeSession 结束场次
func (s *Server) completeSession(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	session, err := s.svc.Sessions.CompleteSession(c.UserContext(), actorID(c), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(session)
}

// ensureRound 确保当前轮次
func (s *Server) ensureRound(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	result, err := s.svc.Ledger.EnsureCurrentRound(c.UserContext(), actorID(c), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(result)
}

// AutoAdvanceRequest 自动抽奖设置
type AutoAdvanceRequest struct {
	Seconds int `json:"seconds"`
}

// setAutoAdvance 设置自动抽奖
func (s *Server) setAutoAdvance(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	var req AutoAdvanceRequest
	if err := parseBody(c, &req); err != nil {
		return fail(c, err)
	}
	session, err := s.svc.Sessions.SetAutoAdvance(c.UserContext(), actorID(c), id, req.Seconds)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(session)
}

// DrawBody 抽奖请求体，可选
type DrawBody struct {
	Customer *service.CustomerInfo `json:"customer"`
}

// draw 抽出下一个中奖者
func (s *Server) draw(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	var body DrawBody
	if len(c.Body()) > 0 {
		if err := parseBody(c, &body); err != nil {
			return fail(c, err)
		}
	}

	result, err := s.svc.Selector.Draw(c.UserContext(), &service.DrawRequest{
		SessionID: id,
		ActorID:   actorID(c),
		Customer:  body.Customer,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(result)
}

// createBoost 设置指定中奖
func (s *Server) createBoost(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	var req service.RegisterBoostRequest
	if err := parseBody(c, &req); err != nil {
		return fail(c, err)
	}
	req.SessionID = id

	boost, err := s.svc.Boosts.Register(c.UserContext(), actorID(c), &req)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(boost)
}

// listBoosts 待生效的指定中奖
func (s *Server) listBoosts(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	boosts, err := s.svc.Boosts.List(actorID(c), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"boosts": boosts})
}

// removeBoost 移除指定中奖
func (s *Server) removeBoost(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	if err := s.svc.Boosts.Remove(c.UserContext(), actorID(c), id); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// CreateGiftRequest 创建奖品请求
type CreateGiftRequest struct {
	Name  string `json:"name"`
	Image string `json:"image"`
}

// createGift 创建奖品
func (s *Server) createGift(c *fiber.Ctx) error {
	var req CreateGiftRequest
	if err := parseBody(c, &req); err != nil {
		return fail(c, err)
	}
	gift, err := s.svc.Gifts.CreateGift(actorID(c), req.Name, req.Image)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(gift)
}

// listGifts 奖品列表
func (s *Server) listGifts(c *fiber.Ctx) error {
	gifts, err := s.svc.Gifts.ListGifts(actorID(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"gifts": gifts})
}

// createBreakdown 创建奖品配置
func (s *Server) createBreakdown(c *fiber.Ctx) error {
	var req service.CreateBreakdownRequest
	if err := parseBody(c, &req); err != nil {
		return fail(c, err)
	}
	breakdown, err := s.svc.Catalog.CreateBreakdown(c.UserContext(), actorID(c), &req)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(breakdown)
}

// getBreakdown 奖品配置详情
func (s *Server) getBreakdown(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	breakdown, err := s.svc.Catalog.GetBreakdown(id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(breakdown)
}

// ActiveRequest 启用状态
type ActiveRequest struct {
	Active bool `json:"active"`
}

// setBreakdownActive 启用或停用奖品配置
func (s *Server) setBreakdownActive(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	var req ActiveRequest
	if err := parseBody(c, &req); err != nil {
		return fail(c, err)
	}
	breakdown, err := s.svc.Catalog.SetBreakdownActive(c.UserContext(), actorID(c), id, req.Active)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(breakdown)
}
