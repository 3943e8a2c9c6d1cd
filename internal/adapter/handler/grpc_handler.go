package handler

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rl1809/chat-commerce/internal/core/domain"
	"github.com/rl1809/chat-commerce/internal/core/service"
)

const storefrontServiceName = "commerce.v1.Storefront"

type CreateSessionRequest struct{}

type CreateSessionResponse struct {
	SessionID string `json:"session_id"`
}

type AddItemRequest struct {
	SessionID string `json:"session_id"`
	ItemID    string `json:"item_id"`
}

type GetCartRequest struct {
	SessionID string `json:"session_id"`
}

type CartResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Cart    domain.CartView `json:"cart"`
}

type CheckoutRequest struct {
	SessionID     string               `json:"session_id"`
	Customer      domain.Customer      `json:"customer"`
	PaymentMethod domain.PaymentMethod `json:"payment_method"`
}

type CheckoutResponse struct {
	Success    bool               `json:"success"`
	Message    string             `json:"message"`
	Order      *domain.Order      `json:"order,omitempty"`
	ShortLines []domain.ShortLine `json:"short_lines,omitempty"`
}

type ChatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type ChatResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message,omitempty"`
	Turns   []domain.Turn `json:"turns"`
}

type StorefrontServer interface {
	CreateSession(context.Context, *CreateSessionRequest) (*CreateSessionResponse, error)
	AddItem(context.Context, *AddItemRequest) (*CartResponse, error)
	GetCart(context.Context, *GetCartRequest) (*CartResponse, error)
	Checkout(context.Context, *CheckoutRequest) (*CheckoutResponse, error)
	Chat(context.Context, *ChatRequest) (*ChatResponse, error)
}

type GRPCHandler struct {
	sessions *service.SessionManager
	checkout *service.CheckoutPipeline
	logger   *zap.Logger
}

func NewGRPCHandler(sessions *service.SessionManager, checkout *service.CheckoutPipeline, logger *zap.Logger) *GRPCHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GRPCHandler{sessions: sessions, checkout: checkout, logger: logger}
}

func RegisterStorefrontServer(s grpc.ServiceRegistrar, srv StorefrontServer) {
	s.RegisterService(&storefrontServiceDesc, srv)
}

func (h *GRPCHandler) CreateSession(ctx context.Context, req *CreateSessionRequest) (*CreateSessionResponse, error) {
	s := h.sessions.Create()
	return &CreateSessionResponse{SessionID: s.ID}, nil
}

func (h *GRPCHandler) AddItem(ctx context.Context, req *AddItemRequest) (*CartResponse, error) {
	s, err := h.session(req.SessionID)
	if err != nil {
		return nil, err
	}

	applied, err := s.Cart.AddItem(ctx, req.ItemID)
	if err != nil {
		return nil, h.statusError(err)
	}
	view, err := s.Cart.View(ctx)
	if err != nil {
		return nil, h.statusError(err)
	}

	resp := &CartResponse{Success: applied, Cart: view}
	if !applied {
		resp.Message = "item not added"
	}
	return resp, nil
}

func (h *GRPCHandler) GetCart(ctx context.Context, req *GetCartRequest) (*CartResponse, error) {
	s, err := h.session(req.SessionID)
	if err != nil {
		return nil, err
	}
	view, err := s.Cart.View(ctx)
	if err != nil {
		return nil, h.statusError(err)
	}
	return &CartResponse{Success: true, Cart: view}, nil
}

func (h *GRPCHandler) Checkout(ctx context.Context, req *CheckoutRequest) (*CheckoutResponse, error) {
	s, err := h.session(req.SessionID)
	if err != nil {
		return nil, err
	}

	order, err := h.checkout.Submit(ctx, s.Cart, service.CheckoutRequest{
		Customer:      req.Customer,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		var changed *domain.StockChangedError
		switch {
		case errors.As(err, &changed):
			return &CheckoutResponse{Success: false, Message: "stock changed", ShortLines: changed.Lines}, nil
		case errors.Is(err, domain.ErrEmptyCart):
			return &CheckoutResponse{Success: false, Message: "cart is empty"}, nil
		case errors.Is(err, domain.ErrCheckoutInFlight):
			return &CheckoutResponse{Success: false, Message: "checkout already in progress"}, nil
		}
		return nil, h.statusError(err)
	}

	return &CheckoutResponse{
		Success: true,
		Message: "order placed successfully",
		Order:   &order,
	}, nil
}

func (h *GRPCHandler) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	s, err := h.session(req.SessionID)
	if err != nil {
		return nil, err
	}

	turns, err := s.Agent.Send(ctx, req.Message)
	if errors.Is(err, domain.ErrAgentBusy) {
		return &ChatResponse{Success: false, Message: "assistant is still answering"}, nil
	}
	if err != nil {
		return nil, h.statusError(err)
	}
	return &ChatResponse{Success: true, Turns: turns}, nil
}

func (h *GRPCHandler) session(id string) (*service.Session, error) {
	s, ok := h.sessions.Get(id)
	if !ok {
		return nil, status.Error(codes.NotFound, "session not found")
	}
	return s, nil
}

func (h *GRPCHandler) statusError(err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, domain.ErrBackendUnavailable):
		return status.Error(codes.Unavailable, "order system unavailable")
	}
	h.logger.Error("grpc request failed", zap.Error(err))
	return status.Error(codes.Internal, "internal error")
}

var storefrontServiceDesc = grpc.ServiceDesc{
	ServiceName: storefrontServiceName,
	HandlerType: (*StorefrontServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("CreateSession", StorefrontServer.CreateSession),
		unary("AddItem", StorefrontServer.AddItem),
		unary("GetCart", StorefrontServer.GetCart),
		unary("Checkout", StorefrontServer.Checkout),
		unary("Chat", StorefrontServer.Chat),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "commerce/v1/storefront",
}

func unary[Req, Resp any](name string, call func(StorefrontServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	fullMethod := "/" + storefrontServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(StorefrontServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(StorefrontServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// StorefrontClient calls the storefront service over a connection that
// negotiates the json codec.
type StorefrontClient struct {
	cc grpc.ClientConnInterface
}

func NewStorefrontClient(cc grpc.ClientConnInterface) *StorefrontClient {
	return &StorefrontClient{cc: cc}
}

func (c *StorefrontClient) CreateSession(ctx context.Context, in *CreateSessionRequest, opts ...grpc.CallOption) (*CreateSessionResponse, error) {
	out := new(CreateSessionResponse)
	return out, c.invoke(ctx, "CreateSession", in, out, opts)
}

func (c *StorefrontClient) AddItem(ctx context.Context, in *AddItemRequest, opts ...grpc.CallOption) (*CartResponse, error) {
	out := new(CartResponse)
	return out, c.invoke(ctx, "AddItem", in, out, opts)
}

func (c *StorefrontClient) GetCart(ctx context.Context, in *GetCartRequest, opts ...grpc.CallOption) (*CartResponse, error) {
	out := new(CartResponse)
	return out, c.invoke(ctx, "GetCart", in, out, opts)
}

func (c *StorefrontClient) Checkout(ctx context.Context, in *CheckoutRequest, opts ...grpc.CallOption) (*CheckoutResponse, error) {
	out := new(CheckoutResponse)
	return out, c.invoke(ctx, "Checkout", in, out, opts)
}

func (c *StorefrontClient) Chat(ctx context.Context, in *ChatRequest, opts ...grpc.CallOption) (*ChatResponse, error) {
	out := new(ChatResponse)
	return out, c.invoke(ctx, "Chat", in, out, opts)
}

func (c *StorefrontClient) invoke(ctx context.Context, method string, in, out any, opts []grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(codecName)}, opts...)
	return c.cc.Invoke(ctx, "/"+storefrontServiceName+"/"+method, in, out, opts...)
}
