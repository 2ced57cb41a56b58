package main

import (
	"context"
	"fmt"
	"net"

	"raindrop-charts/src/config"
	datasource "raindrop-charts/src/data_source"
	pb "raindrop-charts/src/grpc_control"
	"raindrop-charts/src/interfaces"
	"raindrop-charts/src/logger"
	"raindrop-charts/src/server"
	"raindrop-charts/src/utils"

	"google.golang.org/grpc"
)

// -----------------------------------------------------------------------------

// startServers orchestrates the startup of all server components and returns
// the function that stops them.
func startServers(
	srv *server.FastAPIServer,
	facade interfaces.IChartService,
	multiSource *datasource.MultiSourceManager,
	cfg *config.Config,
	configPath string,
	networkManager interfaces.INetworkManager,
	scheduler *utils.MarketScheduler,
	appLogger *logger.Logger,
) func(ctx context.Context) {

	// 1. Dashboard server
	go func() {
		if err := srv.Start(); err != nil {
			appLogger.Error("Server failed: %v", err)
		}
	}()

	// 2. gRPC Control Server
	var grpcServer *grpc.Server
	if cfg.GrpcPort != 0 {
		addr := fmt.Sprintf("%s:%d", cfg.GrpcHost, cfg.GrpcPort)
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			appLogger.Critical("failed to listen for gRPC: %v", err)
		} else {
			grpcServer = grpc.NewServer()
			controlService := pb.NewControlService(cfg, configPath, multiSource, facade, srv.Resolver,
				networkManager, scheduler, logger.NewLogger("ControlService"))
			pb.RegisterRaindropControlServer(grpcServer, controlService)

			go func() {
				appLogger.Info("Starting gRPC Control Server on %s", addr)
				if err := grpcServer.Serve(lis); err != nil {
					appLogger.Critical("failed to serve gRPC: %v", err)
				}
			}()
		}
	}

	return func(ctx context.Context) {
		if grpcServer != nil {
			grpcServer.GracefulStop()
		}
		if err := srv.Stop(ctx); err != nil {
			appLogger.Error("Server shutdown failed: %v", err)
		}
	}
}
