// Copyright 2025 The OHD Server Manager Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use file except in compliance with the License.
// You may obtain a copy of the license at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package ohdsm supervises a single Operation: Harsh Doorstop dedicated
// server.  It launches the server process, watches its liveness, keeps the
// server build and its workshop mods synchronized with Steam via SteamCMD
// and the Steam Web API, and restarts the server after a crash or when an
// update is detected.
//
// The supervisor is deliberately single threaded: one control loop owns
// the process handle and all bookkeeping, and every wait is a blocking
// sleep taken through an injectable Clock so that tests can simulate
// elapsed time.  A small REST surface (see the rest subpackage) exposes
// status, the recent log, and restart/check controls; the ohdsmd and
// ohdsmctl commands wrap the whole thing up for deployment.
package ohdsm
