/*
Command conjunctd serves conjunction runs over HTTP.

Usage

  conjunctd [-c <config-file>]

Settings are read from the config file described in the conjunct command
documentation, then from CONJUNCT_ environment variables.  A .env file in
the working directory, if present, is loaded into the environment first.
The listen address is [server] addr, default ":8000".

Endpoints

  GET /run_demo?sample_minutes=60
      Run the bundled sample set.  Step 10 minutes, threshold 50 km.

  GET /run_pipeline?source=active&sample_minutes=120
      Fetch a Celestrak group (active, stations) or an element set URL and
      run the first max_objects sets.  source defaults to the config key
      source.  Step 10 minutes, threshold 20 km.

  GET /report
      The most recent result.

  GET /healthz
  GET /metrics
      Prometheus metrics.

Results are JSON:

  {
    "run_id": "...",
    "num_nodes": 7,
    "num_edges": 4,
    "nodes": ["ISS (ZARYA)", ...],
    "edges": [
      {"u": "ISS (ZARYA)", "v": "ISS DEB (ALPHA)", "min_distance_km": 1.17,
       "risk_score": 1, "closest_sample": "...", "explanation": "..."},
      ...
    ]
  }

Bad parameters get status 400, a source that cannot be fetched or holds no
element sets gets 502.  If [store] uri is set each graph is also exported
to that database.
*/
package main
