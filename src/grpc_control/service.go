package grpc_control

import (
	"context"
	"encoding/json"
	"fmt"

	"raindrop-charts/src/config"
	datasource "raindrop-charts/src/data_source"
	"raindrop-charts/src/helpers"
	"raindrop-charts/src/interfaces"
	"raindrop-charts/src/logger"
	"raindrop-charts/src/models"
	"raindrop-charts/src/server"
	"raindrop-charts/src/utils"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ControlService implements the RaindropControlServer interface
type ControlService struct {
	Config         *config.Config
	ConfigPath     string
	DataSource     *datasource.MultiSourceManager
	Service        interfaces.IChartService
	Resolver       *server.Resolver
	NetworkManager interfaces.INetworkManager
	Scheduler      *utils.MarketScheduler
	Logger         *logger.Logger
}

// NewControlService creates a new instance of ControlService
func NewControlService(
	cfg *config.Config,
	cfgPath string,
	ds *datasource.MultiSourceManager,
	service interfaces.IChartService,
	resolver *server.Resolver,
	netMgr interfaces.INetworkManager,
	scheduler *utils.MarketScheduler,
	log *logger.Logger,
) *ControlService {
	return &ControlService{
		Config:         cfg,
		ConfigPath:     cfgPath,
		DataSource:     ds,
		Service:        service,
		Resolver:       resolver,
		NetworkManager: netMgr,
		Scheduler:      scheduler,
		Logger:         log,
	}
}

// -----------------------------------------------------------------------------

func (s *ControlService) ListTickers(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error) {
	tickers := make([]interface{}, 0, len(s.Resolver.Catalog))
	for _, t := range s.Resolver.Catalog {
		tickers = append(tickers, map[string]interface{}{"company": t.Company, "ticker": t.Ticker})
	}
	return newStruct(map[string]interface{}{"tickers": tickers})
}

// -----------------------------------------------------------------------------

func (s *ControlService) ListSources(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error) {
	var sources []interface{}
	for i, src := range s.DataSource.GetAllSources() {
		sources = append(sources, map[string]interface{}{
			"name":     src.Name(),
			"type":     datasource.SourceType(src),
			"position": i,
		})
	}
	return newStruct(map[string]interface{}{"sources": sources})
}

// -----------------------------------------------------------------------------

func (s *ControlService) AddSource(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var sourceCfg models.MSourceConfig
	if err := decodeStruct(req, &sourceCfg); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid source config: %v", err)
	}
	if sourceCfg.Name == "" || sourceCfg.Type == "" {
		return nil, status.Error(codes.InvalidArgument, "name and type are required")
	}

	// Check if exists
	if _, err := s.DataSource.GetSource(sourceCfg.Name); err == nil {
		return nil, status.Errorf(codes.AlreadyExists, "source %s already exists", sourceCfg.Name)
	}

	newSource, err := datasource.NewSource(sourceCfg, s.NetworkManager, s.Scheduler)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if err := s.DataSource.AddSource(newSource); err != nil {
		s.Logger.Error("Failed to add source: %v", err)
		return nil, status.Errorf(codes.AlreadyExists, "failed to add source: %v", err)
	}

	s.Config.DataSource.Sources = append(s.Config.DataSource.Sources, sourceCfg)
	s.persist()

	s.Logger.Info("gRPC: Added source %s (%s)", sourceCfg.Name, sourceCfg.Type)
	return newStruct(map[string]interface{}{
		"success": true,
		"message": fmt.Sprintf("Added source %s", sourceCfg.Name),
	})
}

// -----------------------------------------------------------------------------

func (s *ControlService) RemoveSource(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	name := req.GetValue()
	if name == "" {
		return nil, status.Error(codes.InvalidArgument, "name is required")
	}

	if err := s.DataSource.RemoveSource(name); err != nil {
		return nil, status.Errorf(codes.NotFound, "source %s not found", name)
	}

	// Clean from Config
	newSources := []models.MSourceConfig{}
	for _, src := range s.Config.DataSource.Sources {
		if src.Name != name {
			newSources = append(newSources, src)
		}
	}
	s.Config.DataSource.Sources = newSources
	s.persist()

	s.Logger.Info("gRPC: Removed source %s", name)
	return newStruct(map[string]interface{}{
		"success": true,
		"message": fmt.Sprintf("Removed source %s", name),
	})
}

// -----------------------------------------------------------------------------

// chartArgs mirrors the dashboard query accepted by BuildChart.
type chartArgs struct {
	Ticker   string   `json:"ticker"`
	Company  string   `json:"company"`
	Date     string   `json:"date"`
	Bin      int      `json:"bin"`
	Margin   *float64 `json:"margin"`
	Interval string   `json:"interval"`
}

// BuildChart builds one chart and returns the JSON form of the response.
func (s *ControlService) BuildChart(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var args chartArgs
	if err := decodeStruct(req, &args); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid chart request: %v", err)
	}

	chartReq, _, err := s.Resolver.Resolve(server.ChartQuery{
		Ticker:   args.Ticker,
		Company:  args.Company,
		Date:     args.Date,
		Bin:      args.Bin,
		Margin:   args.Margin,
		Interval: args.Interval,
	})
	if err != nil {
		return nil, toStatus(err)
	}

	resp, err := s.Service.BuildChart(ctx, chartReq)
	if err != nil {
		s.Logger.Warning("gRPC: BuildChart %s failed: %v", chartReq.Symbol, err)
		return nil, toStatus(err)
	}

	data, err := json.Marshal(resp)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode chart: %v", err)
	}
	out := &structpb.Struct{}
	if err := out.UnmarshalJSON(data); err != nil {
		return nil, status.Errorf(codes.Internal, "encode chart: %v", err)
	}
	return out, nil
}

// -----------------------------------------------------------------------------

// persist writes the source list back to the config file when one is known.
func (s *ControlService) persist() {
	if s.ConfigPath == "" {
		return
	}
	if err := s.Config.Save(s.ConfigPath); err != nil {
		s.Logger.Error("gRPC: Failed to save config to %s: %v", s.ConfigPath, err)
	}
}

// -----------------------------------------------------------------------------

// toStatus maps the error taxonomy onto gRPC codes.
func toStatus(err error) error {
	switch helpers.ErrorKind(err) {
	case helpers.KindMissingParameter, helpers.KindValidation:
		return status.Error(codes.InvalidArgument, err.Error())
	case helpers.KindNoData, helpers.KindAggregationEmpty:
		return status.Error(codes.NotFound, err.Error())
	case helpers.KindDataSource, helpers.KindNetwork:
		return status.Error(codes.Unavailable, err.Error())
	case helpers.KindConfiguration:
		return status.Error(codes.FailedPrecondition, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// -----------------------------------------------------------------------------

func newStruct(fields map[string]interface{}) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}

// -----------------------------------------------------------------------------

// decodeStruct copies a Struct into a JSON-tagged Go value.
func decodeStruct(in *structpb.Struct, out interface{}) error {
	data, err := in.MarshalJSON()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
